package listview

import (
	"context"
	"sort"
	"sync"
	"time"

	"tasklist/internal/apperr"
	"tasklist/internal/models"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
	clock   *fakeClock
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// queue is a dispatcher that holds mutations until run is called.
type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) dispatch(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, f)
}

func (q *queue) run() {
	for {
		q.mu.Lock()
		if len(q.fns) == 0 {
			q.mu.Unlock()
			return
		}
		f := q.fns[0]
		q.fns = q.fns[1:]
		q.mu.Unlock()
		f()
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

func inline(f func()) { f() }

// fakeServer stands in for the remote procedures and the store behind them.
type fakeServer struct {
	mu        sync.Mutex
	rows      map[int64]models.Task
	updates   []models.UpdateTaskInput
	ctxs      []context.Context
	deletes   []models.DeleteTaskInput
	lists     int
	updateErr error
	deleteErr error
	listErr   error
}

func newFakeServer(tasks ...models.Task) *fakeServer {
	s := &fakeServer{rows: map[int64]models.Task{}}
	for _, t := range tasks {
		s.rows[t.ID] = t
	}
	return s
}

func (s *fakeServer) List(context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Task, 0, len(s.rows))
	for _, t := range s.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeServer) Update(ctx context.Context, in models.UpdateTaskInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, in)
	s.ctxs = append(s.ctxs, ctx)
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.rows[in.ID]; !ok {
		return &apperr.NotFoundError{Entity: "task", ID: in.ID}
	}
	s.rows[in.ID] = in.Task()
	return nil
}

func (s *fakeServer) Delete(ctx context.Context, in models.DeleteTaskInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxs = append(s.ctxs, ctx)
	s.deletes = append(s.deletes, in)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.rows[in.ID]; !ok {
		return &apperr.NotFoundError{Entity: "task", ID: in.ID}
	}
	delete(s.rows, in.ID)
	return nil
}

func (s *fakeServer) put(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = t
}

func (s *fakeServer) updateCalls() []models.UpdateTaskInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UpdateTaskInput(nil), s.updates...)
}

func (s *fakeServer) deleteCalls() []models.DeleteTaskInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DeleteTaskInput(nil), s.deletes...)
}

func (s *fakeServer) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *fakeServer) callContexts() []context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]context.Context(nil), s.ctxs...)
}

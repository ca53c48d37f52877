// Package listview keeps a client-side task list consistent with the server
// while rows are edited optimistically.
package listview

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"tasklist/internal/apperr"
	"tasklist/internal/models"
	"tasklist/internal/schema"
	"tasklist/pkg/logger"
)

var (
	ErrRowIndex   = errors.New("listview: row index out of range")
	ErrNotMounted = errors.New("listview: view is not mounted")
)

// DefaultAnimation is the length of the addition and deletion windows.
const DefaultAnimation = 500 * time.Millisecond

// MutationKind selects the per-kind mutation state.
type MutationKind int

const (
	MutationUpdate MutationKind = iota
	MutationDelete
)

// MutationState mirrors the remote-call layer's flags for one mutation kind.
type MutationState struct {
	IsPending bool
	Err       error // result of the most recently settled call
}

// API is the remote call boundary the view mutates through.
type API interface {
	Update(ctx context.Context, in models.UpdateTaskInput) error
	Delete(ctx context.Context, in models.DeleteTaskInput) error
}

// Options tune a View. Zero values select the defaults.
type Options struct {
	Key         string
	Clock       Clock
	Dispatch    func(func()) // runs a mutation; defaults to a new goroutine
	DeleteDelay time.Duration
	AddDelay    time.Duration
	OnChange    func() // called after every visible state change
}

// View is one mounted task list.
type View struct {
	api         API
	cache       *QueryCache
	key         string
	clock       Clock
	dispatch    func(func())
	deleteDelay time.Duration
	addDelay    time.Duration
	onChange    func()
	form        schema.ArraySchema[models.UpdateTaskInput]

	mu          sync.Mutex
	ctx         context.Context
	mounted     bool
	phase       Phase
	addTimer    Timer
	rows        []row
	seen        map[int64]struct{}
	errs        map[int64]string
	deleting    map[int64]Timer
	overlay     map[int64]models.UpdateTaskInput
	inflight    map[int64]int
	mutations   map[MutationKind]*mutation
	unsubscribe func()
}

type mutation struct {
	inflight int
	err      error
}

// New returns an unmounted view reading the list at opts.Key (ListKey by default).
func New(api API, cache *QueryCache, opts Options) *View {
	v := &View{
		api:         api,
		cache:       cache,
		key:         opts.Key,
		clock:       opts.Clock,
		dispatch:    opts.Dispatch,
		deleteDelay: opts.DeleteDelay,
		addDelay:    opts.AddDelay,
		onChange:    opts.OnChange,
		form:        schema.AsArray(schema.UpdateTaskSchema, "tasks"),
		mutations: map[MutationKind]*mutation{
			MutationUpdate: {},
			MutationDelete: {},
		},
	}
	if v.key == "" {
		v.key = ListKey
	}
	if v.clock == nil {
		v.clock = realClock{}
	}
	if v.dispatch == nil {
		v.dispatch = func(f func()) { go f() }
	}
	if v.deleteDelay <= 0 {
		v.deleteDelay = DefaultAnimation
	}
	if v.addDelay <= 0 {
		v.addDelay = DefaultAnimation
	}
	return v
}

// Mount loads the list, subscribes to refetches and starts the addition window.
func (v *View) Mount(ctx context.Context) error {
	unsubscribe := v.cache.Subscribe(v.key, v.reconcile)
	tasks, err := v.cache.Fetch(ctx, v.key)
	if err != nil {
		unsubscribe()
		return err
	}

	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		unsubscribe()
		return nil
	}
	if latest, ok := v.cache.Data(v.key); ok {
		tasks = latest
	}
	v.ctx = context.WithoutCancel(ctx)
	v.mounted = true
	v.phase = Mounting
	v.rows = nil
	v.seen = map[int64]struct{}{}
	v.errs = map[int64]string{}
	v.deleting = map[int64]Timer{}
	v.overlay = map[int64]models.UpdateTaskInput{}
	v.inflight = map[int64]int{}
	v.unsubscribe = unsubscribe
	v.applyLocked(tasks)
	v.addTimer = v.clock.AfterFunc(v.addDelay, v.settle)
	v.mu.Unlock()

	logger.Debug(ctx, "List view mounted", "key", v.key, "rows", len(tasks))
	v.notify()
	return nil
}

// Unmount stops the timers and drops the subscription. An uncommitted edit is lost.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	if v.addTimer != nil {
		v.addTimer.Stop()
	}
	animating := len(v.deleting) > 0
	for _, t := range v.deleting {
		t.Stop()
	}
	v.deleting = map[int64]Timer{}
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	ctx := v.ctx
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if animating {
		// Rows cut short mid-animation are already gone on the server.
		v.dispatch(func() { v.cache.Invalidate(ctx, v.key) })
	}
}

// Phase reports whether the addition window is still open.
func (v *View) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Mutation returns the state of one mutation kind.
func (v *View) Mutation(kind MutationKind) MutationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	m := v.mutations[kind]
	if m == nil {
		return MutationState{}
	}
	return MutationState{IsPending: m.inflight > 0, Err: m.err}
}

// Deleting returns the ids currently animating out.
func (v *View) Deleting() []int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]int64, 0, len(v.deleting))
	for id := range v.deleting {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Rows renders the current rows.
func (v *View) Rows() []RowView {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]RowView, len(v.rows))
	for i, r := range v.rows {
		id := r.input.ID
		_, deleting := v.deleting[id]
		state := r.state
		if deleting {
			state = Deleting
		}
		msg := v.errs[id]
		out[i] = RowView{
			Index:          i,
			ID:             id,
			Title:          r.input.Title,
			Completed:      r.input.Completed,
			State:          state,
			Pending:        r.state == Editing,
			Show:           !deleting,
			Appear:         r.appear,
			Errored:        msg != "",
			ErrorMessage:   msg,
			InProgress:     r.state == Editing,
			Clickable:      !r.input.Completed && state == Idle,
			RemoveDisabled: v.removeDisabledLocked(id),
		}
		if r.hasDft {
			out[i].Draft = r.draft
		}
	}
	return out
}

// Click starts editing row i. Completed rows and rows that are not idle ignore it.
func (v *View) Click(i int) (bool, error) {
	v.mu.Lock()
	r, err := v.rowLocked(i)
	if err != nil {
		v.mu.Unlock()
		return false, err
	}
	if _, deleting := v.deleting[r.input.ID]; deleting || r.input.Completed || r.state != Idle {
		v.mu.Unlock()
		return false, nil
	}
	r.state = Editing
	r.hasDft = false
	v.mu.Unlock()

	v.notify()
	return true, nil
}

// Blur commits the edit field of row i holding value. An unchanged title only
// leaves editing; a changed one is validated, applied locally and sent.
func (v *View) Blur(i int, value string) error {
	v.mu.Lock()
	r, err := v.rowLocked(i)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if r.state != Editing {
		v.mu.Unlock()
		return nil
	}
	if value == r.input.Title {
		r.state = Idle
		r.hasDft = false
		delete(v.errs, r.input.ID)
		v.mu.Unlock()
		v.notify()
		return nil
	}
	next := r.input
	next.Title = value
	return v.submitLocked(i, next)
}

// ToggleCompleted sends the new completion value of row i right away.
func (v *View) ToggleCompleted(i int, checked bool) error {
	v.mu.Lock()
	r, err := v.rowLocked(i)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if _, deleting := v.deleting[r.input.ID]; deleting {
		v.mu.Unlock()
		return nil
	}
	next := r.input
	next.Completed = checked
	return v.submitLocked(i, next)
}

// Remove deletes row i. It is ignored while any delete is in flight and while
// the row animates out.
func (v *View) Remove(i int) (bool, error) {
	v.mu.Lock()
	r, err := v.rowLocked(i)
	if err != nil {
		v.mu.Unlock()
		return false, err
	}
	id := r.input.ID
	if v.removeDisabledLocked(id) {
		v.mu.Unlock()
		return false, nil
	}
	v.mutations[MutationDelete].inflight++
	ctx := v.ctx
	v.mu.Unlock()

	v.notify()
	v.dispatch(func() { v.runDelete(ctx, id) })
	return true, nil
}

// submitLocked validates the form with next in place of row i. On success it
// applies next optimistically and sends it. Called with v.mu held; releases it.
func (v *View) submitLocked(i int, next models.UpdateTaskInput) error {
	values := v.formValuesLocked()
	values[i] = next.WithPending(false)
	verr := v.validateLocked(values)
	r := &v.rows[i]
	id := r.input.ID
	if _, bad := v.errs[id]; bad {
		r.state = Editing
		r.draft, r.hasDft = next.Title, true
		v.mu.Unlock()
		v.notify()
		return verr
	}

	r.input = next.Stripped()
	r.state = Idle
	r.hasDft = false
	v.overlay[id] = r.input
	v.inflight[id]++
	v.mutations[MutationUpdate].inflight++
	payload := r.input
	ctx := v.ctx
	v.mu.Unlock()

	v.notify()
	v.dispatch(func() { v.runUpdate(ctx, payload) })
	return nil
}

func (v *View) runUpdate(ctx context.Context, in models.UpdateTaskInput) {
	err := v.api.Update(ctx, in)

	v.mu.Lock()
	m := v.mutations[MutationUpdate]
	m.inflight--
	m.err = err
	v.inflight[in.ID]--
	if v.inflight[in.ID] <= 0 {
		delete(v.inflight, in.ID)
		delete(v.overlay, in.ID)
	}
	v.mu.Unlock()

	if err != nil {
		// No rollback: the refetch below restores whatever the store holds.
		logger.Warn(ctx, "Task update failed", "error", err, "task_id", in.ID)
	}
	v.cache.Invalidate(ctx, v.key)
	v.notify()
}

func (v *View) runDelete(ctx context.Context, id int64) {
	err := v.api.Delete(ctx, models.DeleteTaskInput{ID: id})

	v.mu.Lock()
	m := v.mutations[MutationDelete]
	m.inflight--
	m.err = err
	if err != nil {
		v.mu.Unlock()
		logger.Warn(ctx, "Task delete failed", "error", err, "task_id", id)
		v.notify()
		return
	}
	if !v.mounted {
		v.mu.Unlock()
		v.cache.Invalidate(ctx, v.key)
		return
	}
	if t, ok := v.deleting[id]; ok {
		t.Stop()
	}
	v.deleting[id] = v.clock.AfterFunc(v.deleteDelay, func() { v.finishDelete(id) })
	v.mu.Unlock()

	v.notify()
}

func (v *View) finishDelete(id int64) {
	v.mu.Lock()
	ctx := v.ctx
	v.mu.Unlock()

	v.cache.Invalidate(ctx, v.key)

	v.mu.Lock()
	delete(v.deleting, id)
	v.mu.Unlock()
	v.notify()
}

func (v *View) settle() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.phase = Settled
	v.mu.Unlock()
	v.notify()
}

// reconcile rebuilds the rows from the cache. The cache is read under v.mu so
// that whichever notification runs last applies the newest list.
func (v *View) reconcile(tasks []models.Task) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	if latest, ok := v.cache.Data(v.key); ok {
		tasks = latest
	}
	v.applyLocked(tasks)
	v.mu.Unlock()
	v.notify()
}

// applyLocked rebuilds the rows from the server list. Editing rows stay in
// editing and rows with an update in flight keep their optimistic data.
func (v *View) applyLocked(tasks []models.Task) {
	prev := make(map[int64]row, len(v.rows))
	for _, r := range v.rows {
		prev[r.input.ID] = r
	}
	rows := make([]row, 0, len(tasks))
	for _, t := range tasks {
		r := row{input: models.FromTask(t)}
		if o, ok := v.overlay[t.ID]; ok {
			r.input = o
		}
		if p, ok := prev[t.ID]; ok {
			r.appear = p.appear
			if p.state == Editing {
				r.state = Editing
				r.draft, r.hasDft = p.draft, p.hasDft
			}
		} else if _, seen := v.seen[t.ID]; !seen {
			r.appear = v.phase == Settled
		}
		v.seen[t.ID] = struct{}{}
		rows = append(rows, r)
	}
	v.rows = rows

	editing := make(map[int64]bool, len(rows))
	for _, r := range rows {
		if r.state == Editing {
			editing[r.input.ID] = true
		}
	}
	for id := range v.errs {
		if !editing[id] {
			delete(v.errs, id)
		}
	}
}

func (v *View) formValuesLocked() []models.UpdateTaskInput {
	values := make([]models.UpdateTaskInput, len(v.rows))
	for i, r := range v.rows {
		in := r.input
		if r.hasDft {
			in.Title = r.draft
		}
		values[i] = in.WithPending(r.state == Editing)
	}
	return values
}

// validateLocked runs the list validator and stores row errors by id.
func (v *View) validateLocked(values []models.UpdateTaskInput) error {
	clear(v.errs)
	err := v.form.Validate(values)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	for i, in := range values {
		if msg := verr.Field(v.form.Path(i, "title")); msg != "" {
			v.errs[in.ID] = msg
		} else if msg := verr.Field(v.form.Path(i, "id")); msg != "" {
			v.errs[in.ID] = msg
		}
	}
	return err
}

func (v *View) removeDisabledLocked(id int64) bool {
	if m := v.mutations[MutationDelete]; m != nil && m.inflight > 0 {
		return true
	}
	_, deleting := v.deleting[id]
	return deleting
}

func (v *View) rowLocked(i int) (*row, error) {
	if !v.mounted {
		return nil, ErrNotMounted
	}
	if i < 0 || i >= len(v.rows) {
		return nil, ErrRowIndex
	}
	return &v.rows[i], nil
}

func (v *View) notify() {
	if v.onChange != nil {
		v.onChange()
	}
}

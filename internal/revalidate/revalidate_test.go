package revalidate

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasklist/internal/models"
)

type fakeCache struct {
	paths []string
	err   error
}

func (c *fakeCache) Invalidate(_ context.Context, path string) error {
	c.paths = append(c.paths, path)
	return c.err
}

type fakePublisher struct {
	events []models.RevalidateEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev models.RevalidateEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type fakeBroadcaster struct {
	events []models.RevalidateEvent
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, ev models.RevalidateEvent) {
	b.events = append(b.events, ev)
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

func TestRevalidateViaBus(t *testing.T) {
	c, p, b := &fakeCache{}, &fakePublisher{}, &fakeBroadcaster{}
	s := &Signal{Cache: c, Publisher: p, Local: b, Origin: "node-1", Now: fixedNow}

	s.Revalidate(context.Background(), "/")

	if len(c.paths) != 1 || c.paths[0] != "/" {
		t.Fatalf("cache invalidations = %v", c.paths)
	}
	if len(p.events) != 1 {
		t.Fatalf("published = %v", p.events)
	}
	want := models.RevalidateEvent{Path: "/", Origin: "node-1", RequestedAt: fixedNow()}
	if p.events[0] != want {
		t.Fatalf("event = %+v, want %+v", p.events[0], want)
	}
	if len(b.events) != 0 {
		t.Fatalf("local broadcast should be left to the worker, got %v", b.events)
	}
}

func TestRevalidateFallsBackToLocal(t *testing.T) {
	b := &fakeBroadcaster{}
	s := &Signal{
		Cache:     &fakeCache{err: errors.New("redis down")},
		Publisher: &fakePublisher{err: errors.New("kafka down")},
		Local:     b,
		Now:       fixedNow,
	}
	s.Revalidate(context.Background(), "/")
	if len(b.events) != 1 || b.events[0].Path != "/" {
		t.Fatalf("local events = %v", b.events)
	}
}

func TestRevalidateWithoutBus(t *testing.T) {
	b := &fakeBroadcaster{}
	s := &Signal{Local: b}
	s.Revalidate(context.Background(), "/")
	if len(b.events) != 1 {
		t.Fatalf("local events = %v", b.events)
	}
}

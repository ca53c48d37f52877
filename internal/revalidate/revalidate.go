// Package revalidate implements the revalidate(path) signal fired after every
// successful mutation.
package revalidate

import (
	"context"
	"time"

	"tasklist/internal/models"
	"tasklist/pkg/logger"
)

// PageInvalidator drops the cached payload of a page.
type PageInvalidator interface {
	Invalidate(ctx context.Context, path string) error
}

// EventPublisher fans an event out to every replica.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.RevalidateEvent) error
}

// Broadcaster pushes an event to the subscribers of this process.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev models.RevalidateEvent)
}

// Signal invalidates the local page cache, then announces the path either on the
// bus (the worker re-broadcasts it on every replica) or directly to local subscribers.
type Signal struct {
	Cache     PageInvalidator
	Publisher EventPublisher // nil when no bus is configured
	Local     Broadcaster
	Origin    string
	Now       func() time.Time
}

// Revalidate never fails the caller; problems are logged.
func (s *Signal) Revalidate(ctx context.Context, path string) {
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, path); err != nil {
			logger.Warn(ctx, "Page cache invalidation failed", "error", err, "path", path)
		}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ev := models.RevalidateEvent{Path: path, Origin: s.Origin, RequestedAt: now().UTC()}
	if s.Publisher != nil {
		err := s.Publisher.Publish(ctx, ev)
		if err == nil {
			logger.Debug(ctx, "Revalidation published", "path", path)
			return
		}
		logger.Warn(ctx, "Revalidation publish failed, notifying local subscribers only", "error", err, "path", path)
	}
	if s.Local != nil {
		s.Local.Broadcast(ctx, ev)
	}
}

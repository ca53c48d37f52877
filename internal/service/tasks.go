package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"tasklist/internal/apperr"
	"tasklist/internal/models"
	"tasklist/internal/repository"
	"tasklist/internal/schema"
	"tasklist/pkg/logger"
)

// ListPath is the page every task mutation revalidates.
const ListPath = "/"

// Store is the persistence boundary.
type Store interface {
	List(ctx context.Context) ([]models.Task, error)
	FindByID(ctx context.Context, id int64) (models.Task, error)
	Create(ctx context.Context, title string) (models.Task, error)
	Update(ctx context.Context, t models.Task) error
	Delete(ctx context.Context, id int64) error
}

// Revalidator is the revalidate(path) signal.
type Revalidator interface {
	Revalidate(ctx context.Context, path string)
}

// PageCache holds the encoded list page.
type PageCache interface {
	Get(ctx context.Context, path string) ([]byte, bool)
	Set(ctx context.Context, path string, b []byte)
}

// TaskService implements the tasks.* procedures.
type TaskService struct {
	store       Store
	revalidator Revalidator
	pages       PageCache
	sf          singleflight.Group
	generation  atomic.Int64 // bumped on every mutation; stale reads are not cached
}

// NewTaskService wires the service. pages may be nil to disable list caching.
func NewTaskService(store Store, revalidator Revalidator, pages PageCache) *TaskService {
	return &TaskService{store: store, revalidator: revalidator, pages: pages}
}

// Create persists a new task with completed=false.
func (s *TaskService) Create(ctx context.Context, in models.CreateTaskInput) error {
	in, err := schema.CreateTaskSchema.Parse(in)
	if err != nil {
		return err
	}
	t, err := s.store.Create(ctx, in.Title)
	if err != nil {
		return &apperr.PersistenceError{Op: "create", Err: err}
	}
	logger.Info(ctx, "Task created", "task_id", t.ID)
	s.revalidate(ctx)
	return nil
}

// Update overwrites title and completed. The pending marker is never persisted.
func (s *TaskService) Update(ctx context.Context, in models.UpdateTaskInput) error {
	in, err := schema.UpdateTaskSchema.Parse(in)
	if err != nil {
		return err
	}
	if err := s.ensureExists(ctx, in.ID); err != nil {
		return err
	}
	if err := s.store.Update(ctx, in.Task()); err != nil {
		return s.storeErr("update", in.ID, err)
	}
	logger.Info(ctx, "Task updated", "task_id", in.ID, "completed", in.Completed)
	s.revalidate(ctx)
	return nil
}

// Delete removes the task.
func (s *TaskService) Delete(ctx context.Context, in models.DeleteTaskInput) error {
	in, err := schema.DeleteTaskSchema.Parse(in)
	if err != nil {
		return err
	}
	if err := s.ensureExists(ctx, in.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, in.ID); err != nil {
		return s.storeErr("delete", in.ID, err)
	}
	logger.Info(ctx, "Task deleted", "task_id", in.ID)
	s.revalidate(ctx)
	return nil
}

// List returns the authoritative list.
func (s *TaskService) List(ctx context.Context) ([]models.Task, error) {
	b, err := s.ListJSON(ctx)
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, &apperr.PersistenceError{Op: "list", Err: err}
	}
	return tasks, nil
}

// ListJSON returns the encoded list, cache-first. Concurrent misses share one store read.
func (s *TaskService) ListJSON(ctx context.Context) ([]byte, error) {
	if s.pages != nil {
		if b, ok := s.pages.Get(ctx, ListPath); ok {
			return b, nil
		}
	}
	v, err, _ := s.sf.Do(ListPath, func() (interface{}, error) {
		gen := s.generation.Load()
		tasks, err := s.store.List(context.WithoutCancel(ctx))
		if err != nil {
			return nil, &apperr.PersistenceError{Op: "list", Err: err}
		}
		b, err := json.Marshal(tasks)
		if err != nil {
			return nil, &apperr.PersistenceError{Op: "list", Err: err}
		}
		if s.pages != nil && s.generation.Load() == gen {
			s.pages.Set(ctx, ListPath, b)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *TaskService) ensureExists(ctx context.Context, id int64) error {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return s.storeErr("find", id, err)
	}
	return nil
}

func (s *TaskService) storeErr(op string, id int64, err error) error {
	if errors.Is(err, repository.ErrNoTask) {
		return &apperr.NotFoundError{Entity: "task", ID: id}
	}
	return &apperr.PersistenceError{Op: op, Err: err}
}

func (s *TaskService) revalidate(ctx context.Context) {
	s.generation.Add(1)
	s.sf.Forget(ListPath)
	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, ListPath)
	}
}

package models

import "time"

// Task is the persisted entity.
type Task struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// CreateTaskInput is the payload of tasks.create. id and completed are assigned by the store.
type CreateTaskInput struct {
	Title string `json:"title" validate:"title"`
}

// UpdateTaskInput is the payload of tasks.update. Pending only lives on the client
// and is stripped before anything reaches the store.
type UpdateTaskInput struct {
	ID        int64  `json:"id" validate:"gt=0"`
	Title     string `json:"title" validate:"title"`
	Completed bool   `json:"completed"`
	Pending   *bool  `json:"pending,omitempty"`
}

// Task returns the persistence-bound view of the input.
func (in UpdateTaskInput) Task() Task {
	return Task{ID: in.ID, Title: in.Title, Completed: in.Completed}
}

// IsPending reports whether the row is marked as having an uncommitted edit.
func (in UpdateTaskInput) IsPending() bool {
	return in.Pending != nil && *in.Pending
}

// WithPending returns a copy with the pending marker set.
func (in UpdateTaskInput) WithPending(p bool) UpdateTaskInput {
	in.Pending = &p
	return in
}

// Stripped returns a copy without the pending marker, ready to be sent.
func (in UpdateTaskInput) Stripped() UpdateTaskInput {
	in.Pending = nil
	return in
}

// FromTask builds the editable form row for a persisted task.
func FromTask(t Task) UpdateTaskInput {
	return UpdateTaskInput{ID: t.ID, Title: t.Title, Completed: t.Completed}
}

// DeleteTaskInput is the payload of tasks.delete.
type DeleteTaskInput struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// RevalidateEvent is published after every successful mutation so every
// replica and subscribed client drops its copy of the page at Path.
type RevalidateEvent struct {
	Path        string    `json:"path"`
	Origin      string    `json:"origin,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

package listview

import (
	"time"

	"tasklist/internal/models"
)

// RowState is the local state of one row layered over its server data.
type RowState int

const (
	// Idle shows the title as text; a click on an open task starts editing.
	Idle RowState = iota
	// Editing shows a focused text field; the edit is committed on blur.
	Editing
	// Deleting is the exit-animation window after a confirmed delete.
	Deleting
)

func (s RowState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Deleting:
		return "deleting"
	}
	return "unknown"
}

// Phase is the component-level entrance-animation gate.
type Phase int

const (
	// Mounting lasts for the addition window after Mount; rows shown now do not animate in.
	Mounting Phase = iota
	// Settled means rows that appear from now on play the entrance transition.
	Settled
)

// RowView is what a renderer needs to draw one row.
type RowView struct {
	Index     int
	ID        int64
	Title     string // last known title; the edit field is pre-filled with Draft when set
	Draft     string // rejected edit still shown in the field
	Completed bool
	State     RowState

	// Pending mirrors the client-only marker carried on the form row.
	Pending bool
	// Show is false while the row animates out.
	Show bool
	// Appear is true when the row should play the entrance transition.
	Appear bool
	// Errored flags a title validation error; ErrorMessage is the localized text.
	Errored      bool
	ErrorMessage string
	// InProgress flags the editing border; hover background is disabled.
	InProgress bool
	// Clickable is false for completed rows and rows not idle.
	Clickable      bool
	RemoveDisabled bool
}

type row struct {
	input  models.UpdateTaskInput
	state  RowState // Idle or Editing; Deleting is derived from the deleting set
	draft  string
	hasDft bool
	appear bool
}

// Timer is a one-shot timer that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock arms one-shot timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Package apperr defines the error taxonomy shared by the server, the RPC client
// and the list view.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Codes used on the wire.
const (
	CodeValidation  = "VALIDATION"
	CodeNotFound    = "NOT_FOUND"
	CodePersistence = "PERSISTENCE"
	CodeTransport   = "TRANSPORT"
)

// ValidationError reports schema violations keyed by field path ("title", "tasks.2.title").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for path, or "".
func (e *ValidationError) Field(path string) string {
	if e == nil {
		return ""
	}
	return e.Fields[path]
}

// NotFoundError reports that no row matches the id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransportError wraps a remote call that did not complete.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var v *PersistenceError
	return errors.As(err, &v)
}

func IsTransport(err error) bool {
	var v *TransportError
	return errors.As(err, &v)
}

// Code returns the wire code for err.
func Code(err error) string {
	switch {
	case IsValidation(err):
		return CodeValidation
	case IsNotFound(err):
		return CodeNotFound
	case IsTransport(err):
		return CodeTransport
	default:
		return CodePersistence
	}
}

// Envelope is the JSON error body exchanged on the RPC surface.
type Envelope struct {
	Error Wire `json:"error"`
}

// Wire is the transportable form of an error.
type Wire struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	ID      int64             `json:"id,omitempty"`
}

// ToWire converts err into its transportable form. Messages of unexpected
// failures are not exposed.
func ToWire(err error) Wire {
	w := Wire{Code: Code(err), Message: err.Error()}
	var verr *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &verr):
		w.Fields = verr.Fields
	case errors.As(err, &nf):
		w.ID = nf.ID
	default:
		w.Message = "internal error"
	}
	return w
}

// FromWire rebuilds the typed error a server reported for op.
func FromWire(op string, status int, w Wire) error {
	switch w.Code {
	case CodeValidation:
		fields := w.Fields
		if fields == nil {
			fields = map[string]string{"": w.Message}
		}
		return &ValidationError{Fields: fields}
	case CodeNotFound:
		return &NotFoundError{Entity: "task", ID: w.ID}
	case CodePersistence:
		return &PersistenceError{Op: op, Err: errors.New(w.Message)}
	default:
		return &TransportError{Op: op, Status: status, Err: errors.New(w.Message)}
	}
}

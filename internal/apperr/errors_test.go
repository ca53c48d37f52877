package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeUnwrapsWrappedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ValidationError{Fields: map[string]string{"title": "x"}}, CodeValidation},
		{fmt.Errorf("update: %w", &NotFoundError{Entity: "task", ID: 9}), CodeNotFound},
		{&PersistenceError{Op: "create", Err: errors.New("conn refused")}, CodePersistence},
		{fmt.Errorf("call: %w", &TransportError{Op: "tasks.list", Status: 502, Err: errors.New("bad gateway")}), CodeTransport},
		{errors.New("anything else"), CodePersistence},
	}
	for _, tc := range cases {
		if got := Code(tc.err); got != tc.want {
			t.Errorf("Code(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"tasks.1.title": "b", "tasks.0.title": "a"}}
	want := "validation failed: tasks.0.title: a; tasks.1.title: b"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Field("tasks.1.title") != "b" {
		t.Fatalf("Field returned %q", err.Field("tasks.1.title"))
	}
	var nilErr *ValidationError
	if nilErr.Field("title") != "" {
		t.Fatal("nil receiver should return empty message")
	}
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := &PersistenceError{Op: "delete", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if !IsPersistence(fmt.Errorf("wrapped: %w", err)) {
		t.Fatal("expected IsPersistence through wrapping")
	}
}

func TestWireRoundTrip(t *testing.T) {
	verr := &ValidationError{Fields: map[string]string{"title": "too long"}}
	back := FromWire("tasks.update", 400, ToWire(verr))
	var got *ValidationError
	if !errors.As(back, &got) || got.Fields["title"] != "too long" {
		t.Fatalf("validation round trip = %v", back)
	}

	back = FromWire("tasks.delete", 404, ToWire(&NotFoundError{Entity: "task", ID: 99}))
	var nf *NotFoundError
	if !errors.As(back, &nf) || nf.ID != 99 {
		t.Fatalf("not found round trip = %v", back)
	}

	w := ToWire(&PersistenceError{Op: "create", Err: errors.New("password=secret")})
	if w.Code != CodePersistence || w.Message != "internal error" {
		t.Fatalf("persistence wire = %+v", w)
	}
	if !IsPersistence(FromWire("tasks.create", 500, w)) {
		t.Fatal("expected persistence error back")
	}

	if !IsTransport(FromWire("tasks.list", 502, Wire{Code: "", Message: "bad gateway"})) {
		t.Fatal("unknown codes should map to transport errors")
	}
}

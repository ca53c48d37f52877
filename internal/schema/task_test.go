package schema

import (
	"errors"
	"strings"
	"testing"

	"tasklist/internal/apperr"
	"tasklist/internal/models"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *apperr.ValidationError, got %T (%v)", err, err)
	}
	return verr.Fields
}

func TestTitleLengthBounds(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"empty", "", MsgTitleTooShort},
		{"one char", "a", ""},
		{"exactly 100", strings.Repeat("a", 100), ""},
		{"101", strings.Repeat("a", 101), MsgTitleTooLong},
		{"100 multibyte", strings.Repeat("牛", 100), ""},
		{"101 multibyte", strings.Repeat("牛", 101), MsgTitleTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CreateTaskSchema.Validate(models.CreateTaskInput{Title: tc.title})
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := fieldErrors(t, err)["title"]; got != tc.want {
				t.Fatalf("title message = %q, want %q", got, tc.want)
			}

			err = UpdateTaskSchema.Validate(models.UpdateTaskInput{ID: 1, Title: tc.title})
			if got := fieldErrors(t, err)["title"]; got != tc.want {
				t.Fatalf("update title message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUpdateSchemaIgnoresPending(t *testing.T) {
	in := models.UpdateTaskInput{ID: 3, Title: "Buy milk", Completed: true}.WithPending(true)
	out, err := UpdateTaskSchema.Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Pending != nil {
		t.Fatalf("pending should be stripped, got %v", *out.Pending)
	}
	if out.ID != 3 || out.Title != "Buy milk" || !out.Completed {
		t.Fatalf("unexpected parsed value %+v", out)
	}
}

func TestIDMustBePositive(t *testing.T) {
	if err := DeleteTaskSchema.Validate(models.DeleteTaskInput{ID: 0}); fieldErrors(t, err)["id"] != MsgInvalidID {
		t.Fatalf("expected id error, got %v", err)
	}
	if err := DeleteTaskSchema.Validate(models.DeleteTaskInput{ID: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := UpdateTaskSchema.Validate(models.UpdateTaskInput{ID: -1, Title: ""})
	fields := fieldErrors(t, err)
	if fields["id"] != MsgInvalidID || fields["title"] != MsgTitleTooShort {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestAsArrayIndexesErrorsByPosition(t *testing.T) {
	rows := []models.UpdateTaskInput{
		{ID: 1, Title: "ok"},
		{ID: 2, Title: ""},
		{ID: 3, Title: "fine"},
		{ID: 4, Title: strings.Repeat("x", 101)},
	}
	list := AsArray(UpdateTaskSchema, "tasks")
	fields := fieldErrors(t, list.Validate(rows))
	if len(fields) != 2 {
		t.Fatalf("expected 2 errors, got %v", fields)
	}
	if fields["tasks.1.title"] != MsgTitleTooShort {
		t.Errorf("tasks.1.title = %q", fields["tasks.1.title"])
	}
	if fields["tasks.3.title"] != MsgTitleTooLong {
		t.Errorf("tasks.3.title = %q", fields["tasks.3.title"])
	}
	if err := list.Validate(rows[:1]); err != nil {
		t.Fatalf("valid list returned %v", err)
	}
	if list.Path(2, "title") != "tasks.2.title" {
		t.Fatalf("Path = %q", list.Path(2, "title"))
	}
}

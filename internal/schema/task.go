// Package schema validates task payloads before they reach the store or the wire.
package schema

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tasklist/internal/apperr"
	"tasklist/internal/models"
)

const (
	TitleMinLength = 1
	TitleMaxLength = 100

	MsgTitleTooShort = "最低1文字以上入力してください"
	MsgTitleTooLong  = "最大100文字まで入力してください"
	MsgInvalidID     = "不正なIDです"
	MsgInvalid       = "入力内容が不正です"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("title", "min="+strconv.Itoa(TitleMinLength)+",max="+strconv.Itoa(TitleMaxLength))
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Schema validates one payload type and produces its persistence-bound value.
type Schema[T any] struct {
	clean func(T) T
}

// Validate returns nil or a *apperr.ValidationError keyed by json field name.
func (s Schema[T]) Validate(v T) error {
	fields := s.fieldErrors(v)
	if len(fields) == 0 {
		return nil
	}
	return &apperr.ValidationError{Fields: fields}
}

// Parse validates v and returns the value that may be persisted or sent.
func (s Schema[T]) Parse(v T) (T, error) {
	if err := s.Validate(v); err != nil {
		var zero T
		return zero, err
	}
	if s.clean != nil {
		v = s.clean(v)
	}
	return v, nil
}

func (s Schema[T]) fieldErrors(v T) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": MsgInvalid}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, ok := out[fe.Field()]; ok {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		if fe.ActualTag() == "max" {
			return MsgTitleTooLong
		}
		return MsgTitleTooShort
	case "id":
		return MsgInvalidID
	}
	return MsgInvalid
}

var (
	CreateTaskSchema = Schema[models.CreateTaskInput]{}
	UpdateTaskSchema = Schema[models.UpdateTaskInput]{clean: models.UpdateTaskInput.Stripped}
	DeleteTaskSchema = Schema[models.DeleteTaskInput]{}
)

// ArraySchema validates an ordered list of payloads as one logical form.
type ArraySchema[T any] struct {
	item Schema[T]
	name string
}

// AsArray lifts s into a validator over a list; errors are keyed "<name>.<index>.<field>".
func AsArray[T any](s Schema[T], name string) ArraySchema[T] {
	return ArraySchema[T]{item: s, name: name}
}

// Name is the form key the list lives under.
func (a ArraySchema[T]) Name() string { return a.name }

// Path returns the error key of field in the row at index.
func (a ArraySchema[T]) Path(index int, field string) string {
	return a.name + "." + strconv.Itoa(index) + "." + field
}

// Validate checks every row and merges the errors.
func (a ArraySchema[T]) Validate(rows []T) error {
	fields := map[string]string{}
	for i, row := range rows {
		for f, msg := range a.item.fieldErrors(row) {
			fields[a.Path(i, f)] = msg
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &apperr.ValidationError{Fields: fields}
}

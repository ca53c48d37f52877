package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"tasklist/internal/apperr"
	"tasklist/internal/client"
	"tasklist/internal/config"
	"tasklist/internal/listview"
	"tasklist/internal/models"
)

// session is one mounted list view backed by the remote procedures.
type session struct {
	api   *client.Client
	cache *listview.QueryCache
	view  *listview.View
	sub   *client.Subscriber
}

func openSession(ctx context.Context, baseURL string, onChange func()) (*session, error) {
	cfg := config.Get()
	api := client.New(baseURL, nil)
	cache := listview.NewQueryCache()
	cache.Register(listview.ListKey, api.List)
	s := &session{
		api:   api,
		cache: cache,
		sub:   client.NewSubscriber(baseURL),
		view: listview.New(api, cache, listview.Options{
			// Commands wait for their mutation before printing.
			Dispatch:    func(f func()) { f() },
			DeleteDelay: cfg.DeleteAnimation,
			AddDelay:    cfg.AddAnimation,
			OnChange:    onChange,
		}),
	}
	if err := s.view.Mount(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// close unmounts the view and returns the authoritative list.
func (s *session) close(ctx context.Context) []models.Task {
	s.view.Unmount()
	tasks, ok := s.cache.Data(listview.ListKey)
	if !ok {
		tasks, _ = s.cache.Fetch(ctx, listview.ListKey)
	}
	return tasks
}

func (s *session) add(ctx context.Context, in models.CreateTaskInput) error {
	if err := s.api.Create(ctx, in); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, listview.ListKey)
}

func (s *session) edit(id int64, title string) error {
	r, err := s.row(id)
	if err != nil {
		return err
	}
	ok, err := s.view.Click(r.Index)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %d cannot be edited while it is completed", id)
	}
	if err := s.view.Blur(r.Index, title); err != nil {
		return err
	}
	return s.view.Mutation(listview.MutationUpdate).Err
}

func (s *session) toggle(id int64) error {
	r, err := s.row(id)
	if err != nil {
		return err
	}
	if err := s.view.ToggleCompleted(r.Index, !r.Completed); err != nil {
		return err
	}
	return s.view.Mutation(listview.MutationUpdate).Err
}

func (s *session) remove(id int64) error {
	r, err := s.row(id)
	if err != nil {
		return err
	}
	ok, err := s.view.Remove(r.Index)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %d is already being deleted", id)
	}
	return s.view.Mutation(listview.MutationDelete).Err
}

// subscribe refetches the list on every pushed revalidation until ctx is done.
func (s *session) subscribe(ctx context.Context) {
	s.sub.Run(ctx, func(models.RevalidateEvent) {
		s.cache.Invalidate(ctx, listview.ListKey)
	})
}

func (s *session) row(id int64) (listview.RowView, error) {
	for _, r := range s.view.Rows() {
		if r.ID == id {
			return r, nil
		}
	}
	return listview.RowView{}, &apperr.NotFoundError{Entity: "task", ID: id}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func render(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, line(t.ID, t.Completed, t.Title))
	}
}

func renderRows(w io.Writer, rows []listview.RowView) {
	shown := 0
	for _, r := range rows {
		if !r.Show {
			continue
		}
		fmt.Fprintln(w, line(r.ID, r.Completed, r.Title))
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "no tasks")
	}
}

func line(id int64, completed bool, title string) string {
	mark := " "
	if completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %4d  %s", mark, id, title)
}

// formatError prints validation failures as their localized messages.
func formatError(err error) string {
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		return "error: " + err.Error()
	}
	msgs := make([]string, 0, len(verr.Fields))
	for _, msg := range verr.Fields {
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return "invalid input: " + strings.Join(msgs, ", ")
}

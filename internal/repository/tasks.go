package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"tasklist/internal/database"
	"tasklist/internal/models"
	"tasklist/pkg/logger"
)

// ErrNoTask is returned when no row matches the id.
var ErrNoTask = errors.New("task not found")

// Tasks is the SQL-backed task store.
type Tasks struct {
	db     *sql.DB
	driver string
}

// NewTasks returns a store over db. driver selects the placeholder style.
func NewTasks(db *sql.DB, driver string) *Tasks {
	return &Tasks{db: db, driver: driver}
}

// rebind turns ? placeholders into $n for postgres.
func (r *Tasks) rebind(q string) string {
	if r.driver != database.DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// List returns all tasks in creation order.
func (r *Tasks) List(ctx context.Context) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, completed FROM tasks ORDER BY id ASC`)
	if err != nil {
		logger.Error(ctx, "Repository List failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed); err != nil {
			logger.Error(ctx, "Repository scan task failed", "error", err)
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// FindByID returns the task with id or ErrNoTask.
func (r *Tasks) FindByID(ctx context.Context, id int64) (models.Task, error) {
	var t models.Task
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT id, title, completed FROM tasks WHERE id = ?`), id).
		Scan(&t.ID, &t.Title, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNoTask
	}
	if err != nil {
		logger.Error(ctx, "Repository FindByID failed", "error", err, "id", id)
		return models.Task{}, err
	}
	return t, nil
}

// Create inserts a task with the given title; the store assigns id and completed=false.
func (r *Tasks) Create(ctx context.Context, title string) (models.Task, error) {
	t := models.Task{Title: title}
	err := r.db.QueryRowContext(ctx,
		r.rebind(`INSERT INTO tasks (title, completed) VALUES (?, ?) RETURNING id`),
		title, false).Scan(&t.ID)
	if err != nil {
		logger.Error(ctx, "Repository Create failed", "error", err)
		return models.Task{}, err
	}
	return t, nil
}

// Update overwrites title and completed of the task with t.ID.
func (r *Tasks) Update(ctx context.Context, t models.Task) error {
	res, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE tasks SET title = ?, completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		t.Title, t.Completed, t.ID)
	if err != nil {
		logger.Error(ctx, "Repository Update failed", "error", err, "id", t.ID)
		return err
	}
	return expectOne(res)
}

// Delete removes the task with id.
func (r *Tasks) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		logger.Error(ctx, "Repository Delete failed", "error", err, "id", id)
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoTask
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

const taskColumns = `id, title, description, status, due_date, user_id, created_at, updated_at`

var taskColumnNames = map[store.TaskField]string{
	store.TaskFieldStatus:  "status",
	store.TaskFieldTitle:   "title",
	store.TaskFieldDueDate: "due_date",
	store.TaskFieldOwner:   "user_id",
}

type tasksRepo struct {
	db store.DBTX
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t   domain.Task
		due sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &due, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Task{}, err
	}
	t.DueDate = mapNullTimePtr(due)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

type where struct {
	params
	clauses []string
}

func (w *where) scope(s store.OwnerScope) {
	if !s.All {
		w.clauses = append(w.clauses, "user_id = "+w.add(s.OwnerID))
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *where) filter(f store.TaskFilter) error {
	if f.Field == store.TaskFieldNone || len(f.Values) == 0 {
		return nil
	}
	column, ok := taskColumnNames[f.Field]
	if !ok {
		return fmt.Errorf("postgres: unsupported task field %d", f.Field)
	}

	if f.Field == store.TaskFieldDueDate {
		ranges := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			start, end, err := store.DayRange(v)
			if err != nil {
				return fmt.Errorf("postgres: due date filter %q: %w", v, err)
			}
			ranges = append(ranges, "(due_date >= "+w.add(start)+" AND due_date < "+w.add(end)+")")
		}
		w.clauses = append(w.clauses, "("+strings.Join(ranges, " OR ")+")")
		return nil
	}

	placeholders := make([]string, len(f.Values))
	for i, v := range f.Values {
		placeholders[i] = w.add(v)
	}
	w.clauses = append(w.clauses, column+" IN ("+strings.Join(placeholders, ", ")+")")
	return nil
}

func orderBy(q store.TaskQuery) string {
	if q.SortBy != store.TaskSortDueDate {
		return " ORDER BY id ASC"
	}
	if q.Descending {
		return " ORDER BY due_date DESC NULLS LAST, id ASC"
	}
	return " ORDER BY due_date ASC NULLS LAST, id ASC"
}

func (r *tasksRepo) ListTasks(ctx context.Context, q store.TaskQuery) ([]domain.Task, error) {
	var w where
	w.scope(q.Scope)
	if err := w.filter(q.Filter); err != nil {
		return nil, err
	}
	if q.SearchTitle != "" {
		w.clauses = append(w.clauses, `title ILIKE `+w.add("%"+store.EscapeLike(q.SearchTitle)+"%")+` ESCAPE '\'`)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`+w.String()+orderBy(q), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *tasksRepo) GetTask(ctx context.Context, id int64, scope store.OwnerScope) (domain.Task, error) {
	var w where
	w.clauses = append(w.clauses, "id = "+w.add(id))
	w.scope(scope)

	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks`+w.String(), w.args...))
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) (int64, error) {
	created := nowOr(t.CreatedAt)
	updated := created
	if !t.UpdatedAt.IsZero() {
		updated = t.UpdatedAt.UTC()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, status, due_date, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		t.Title, t.Description, t.Status, mapOptionalTime(t.DueDate), t.OwnerID, created, updated,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *tasksRepo) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch, updatedAt time.Time) error {
	var p params
	sets := []string{"updated_at = " + p.add(nowOr(updatedAt))}

	if patch.Title != nil {
		sets = append(sets, "title = "+p.add(*patch.Title))
	}
	if patch.Description != nil {
		sets = append(sets, "description = "+p.add(*patch.Description))
	}
	if patch.Status != nil {
		sets = append(sets, "status = "+p.add(*patch.Status))
	}
	switch {
	case patch.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case patch.DueDate != nil:
		sets = append(sets, "due_date = "+p.add(patch.DueDate.UTC()))
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = `+p.add(id), p.args...)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r *tasksRepo) DeleteTask(ctx context.Context, id int64, scope store.OwnerScope) (bool, error) {
	var w where
	w.clauses = append(w.clauses, "id = "+w.add(id))
	w.scope(scope)

	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks`+w.String(), w.args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package sqlite

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

// taskColumnNames maps the typed filter fields to fixed column names.
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
		t                    domain.Task
		due                  sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &due, &t.OwnerID, &createdAt, &updatedAt); err != nil {
		return domain.Task{}, err
	}
	t.DueDate = mapNullTimePtr(due)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

// where accumulates AND-ed predicates and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) scope(s store.OwnerScope) {
	if !s.All {
		w.add("user_id = ?", s.OwnerID)
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
		return fmt.Errorf("sqlite: unsupported task field %d", f.Field)
	}

	if f.Field == store.TaskFieldDueDate {
		ranges := make([]string, 0, len(f.Values))
		args := make([]any, 0, 2*len(f.Values))
		for _, v := range f.Values {
			start, end, err := store.DayRange(v)
			if err != nil {
				return fmt.Errorf("sqlite: due date filter %q: %w", v, err)
			}
			ranges = append(ranges, "(due_date >= ? AND due_date < ?)")
			args = append(args, toMillis(start), toMillis(end))
		}
		w.add("("+strings.Join(ranges, " OR ")+")", args...)
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
	args := make([]any, len(f.Values))
	for i, v := range f.Values {
		args[i] = v
	}
	w.add(column+" IN ("+placeholders+")", args...)
	return nil
}

func orderBy(q store.TaskQuery) string {
	if q.SortBy != store.TaskSortDueDate {
		return " ORDER BY id ASC"
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	// Tasks without a due date sort last in both directions.
	return " ORDER BY due_date IS NULL, due_date " + dir + ", id ASC"
}

func (r *tasksRepo) ListTasks(ctx context.Context, q store.TaskQuery) ([]domain.Task, error) {
	var w where
	w.scope(q.Scope)
	if err := w.filter(q.Filter); err != nil {
		return nil, err
	}
	if q.SearchTitle != "" {
		w.add(`lower(title) LIKE ? ESCAPE '\'`, "%"+store.EscapeLike(strings.ToLower(q.SearchTitle))+"%")
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
	w.add("id = ?", id)
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
		updated = t.UpdatedAt
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, due_date, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.Status, mapOptionalTime(t.DueDate), t.OwnerID,
		toMillis(created), toMillis(updated),
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *tasksRepo) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch, updatedAt time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(nowOr(updatedAt))}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	switch {
	case patch.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case patch.DueDate != nil:
		sets = append(sets, "due_date = ?")
		args = append(args, toMillis(*patch.DueDate))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r *tasksRepo) DeleteTask(ctx context.Context, id int64, scope store.OwnerScope) (bool, error) {
	var w where
	w.add("id = ?", id)
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

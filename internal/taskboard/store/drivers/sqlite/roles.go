package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

type rolesRepo struct {
	db store.DBTX
}

func (r *rolesRepo) RoleExists(ctx context.Context, name domain.Role) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE name = ?)`, string(name),
	).Scan(&exists)
	return exists, err
}

func (r *rolesRepo) CreateRole(ctx context.Context, name domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		string(name), toMillis(time.Now()),
	)
	return err
}

func (r *rolesRepo) AddUserToRole(ctx context.Context, userID string, name domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(name), toMillis(time.Now()), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

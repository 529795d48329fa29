package postgres

import (
	"context"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

type rolesRepo struct {
	db store.DBTX
}

func (r *rolesRepo) RoleExists(ctx context.Context, name domain.Role) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, string(name),
	).Scan(&exists)
	return exists, err
}

func (r *rolesRepo) CreateRole(ctx context.Context, name domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, string(name))
	return err
}

func (r *rolesRepo) AddUserToRole(ctx context.Context, userID string, name domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, string(name), userID)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

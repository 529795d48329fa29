package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

const userColumns = `id, username, email, password_hash, role,
	refresh_token_hash, refresh_token_expires_at, created_at, updated_at`

type usersRepo struct {
	db store.DBTX
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		role, refreshHash    sql.NullString
		refreshExp           sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role,
		&refreshHash, &refreshExp, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role.String)
	u.RefreshTokenHash = mapNullStringPtr(refreshHash)
	u.RefreshTokenExpiresAt = mapNullTimePtr(refreshExp)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `username_normalized = ?`, normalize(username))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `email = ?`, normalize(email))
}

func (r *usersRepo) GetUserByRefreshHash(ctx context.Context, hash string) (domain.User, error) {
	return r.getOne(ctx, `refresh_token_hash = ?`, hash)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	created := nowOr(u.CreatedAt)
	updated := created
	if !u.UpdatedAt.IsZero() {
		updated = u.UpdatedAt
	}

	var role sql.NullString
	if u.Role != "" {
		role = sql.NullString{String: string(u.Role), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, username_normalized, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, normalize(u.Username), normalize(u.Email), u.PasswordHash, role,
		toMillis(created), toMillis(updated),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = ?, username_normalized = ?, email = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		u.Username, normalize(u.Username), normalize(u.Email), u.PasswordHash,
		toMillis(nowOr(u.UpdatedAt)), u.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}

func (r *usersRepo) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at, id`, string(role))
}

func (r *usersRepo) SetRefreshToken(ctx context.Context, userID string, hash *string, expiresAt *time.Time) error {
	if hash == nil {
		expiresAt = nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		mapOptionalString(hash), mapOptionalTime(expiresAt), toMillis(time.Now()), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

func (r *usersRepo) SwapRefreshToken(
	ctx context.Context,
	userID, oldHash, newHash string,
	expiresAt time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ? AND refresh_token_hash = ?`,
		newHash, toMillis(expiresAt), toMillis(time.Now()), userID, oldHash,
	)
	if err != nil {
		return false, mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL
		WHERE refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at <= ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

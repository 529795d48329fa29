package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// DBTX is the subset of database/sql used by the repositories. Both *sql.DB
// and *sql.Tx satisfy it, so a repository does not care whether it runs
// inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories so a transaction-scoped Store
// hands out repositories bound to the same transaction.
type Store interface {
	Users() Users
	Roles() Roles
	Tasks() Tasks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	//
	// Inside fn only tx may be used. The sqlite driver runs on a single
	// connection, so touching the outer Store from fn deadlocks.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID). It takes
	// the password hash, never the password. Returns ErrAlreadyExists when the
	// username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser rewrites username, email and password hash and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	// DeleteUser cascades to tasks (per schema).
	DeleteUser(ctx context.Context, id string) error

	// ListUsers returns every user ordered by creation.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// ListUsersByRole is the derived membership lookup.
	ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error)

	// GetUserByRefreshHash resolves the owner of a refresh token fingerprint.
	GetUserByRefreshHash(ctx context.Context, hash string) (domain.User, error)

	// SetRefreshToken overwrites the stored refresh token. A nil hash clears it.
	SetRefreshToken(ctx context.Context, userID string, hash *string, expiresAt *time.Time) error

	// SwapRefreshToken replaces oldHash with newHash only if oldHash is still
	// the stored value. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) (bool, error)

	// ClearExpiredRefreshTokens nulls refresh tokens that expired before now.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type Roles interface {
	RoleExists(ctx context.Context, name domain.Role) (bool, error)

	// CreateRole inserts the role if it is missing. Concurrent callers both
	// succeed.
	CreateRole(ctx context.Context, name domain.Role) error

	// AddUserToRole sets the user's single role. Returns ErrNotFound for an
	// unknown user.
	AddUserToRole(ctx context.Context, userID string, name domain.Role) error
}

type Tasks interface {
	// ListTasks returns the tasks matching q.
	ListTasks(ctx context.Context, q TaskQuery) ([]domain.Task, error)

	// GetTask returns the task if it exists within scope.
	GetTask(ctx context.Context, id int64, scope OwnerScope) (domain.Task, error)

	// CreateTask inserts t and returns the assigned id.
	CreateTask(ctx context.Context, t domain.Task) (int64, error)

	// UpdateTask applies the non-nil patch fields and sets updated_at.
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch, updatedAt time.Time) error

	// DeleteTask removes the task if it exists within scope and reports
	// whether a row was deleted.
	DeleteTask(ctx context.Context, id int64, scope OwnerScope) (bool, error)
}

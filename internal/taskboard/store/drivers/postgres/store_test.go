package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
)

// setupPostgres starts a throwaway Postgres container and returns a migrated
// store. The test is skipped with -short or when Docker is unavailable.
func setupPostgres(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres driver tests need Docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "taskboard",
			"POSTGRES_PASSWORD": "taskboard",
			"POSTGRES_DB":       "taskboard",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://taskboard:taskboard@%s:%s/taskboard?sslmode=disable", host, port.Port())
	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, username string) domain.User {
	t.Helper()
	ctx := context.Background()
	u := domain.User{ID: idx.New().String(), Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Users().CreateUser(ctx, u))
	require.NoError(t, s.Roles().CreateRole(ctx, domain.RoleUser))
	require.NoError(t, s.Roles().AddUserToRole(ctx, u.ID, domain.RoleUser))
	u.Role = domain.RoleUser
	return u
}

func TestPostgresStore(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	a := seedUser(t, s, "UserA")
	b := seedUser(t, s, "userb")

	t.Run("users", func(t *testing.T) {
		got, err := s.Users().GetUserByUsername(ctx, "usera")
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
		require.Equal(t, "UserA", got.Username)
		require.Equal(t, domain.RoleUser, got.Role)

		err = s.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "USERA", Email: "x@example.com", PasswordHash: "h"})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		require.ErrorIs(t, s.Roles().AddUserToRole(ctx, a.ID, "ghost"), store.ErrNotFound)
	})

	t.Run("refresh swap", func(t *testing.T) {
		h := "fp-1"
		exp := time.Now().Add(time.Hour)
		require.NoError(t, s.Users().SetRefreshToken(ctx, a.ID, &h, &exp))

		ok, err := s.Users().SwapRefreshToken(ctx, a.ID, h, "fp-2", exp)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.Users().SwapRefreshToken(ctx, a.ID, h, "fp-3", exp)
		require.NoError(t, err)
		require.False(t, ok)

		n, err := s.Users().ClearExpiredRefreshTokens(ctx, exp.Add(time.Second))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("tasks", func(t *testing.T) {
		mk := func(owner, title string, due *time.Time) int64 {
			id, err := s.Tasks().CreateTask(ctx, domain.Task{Title: title, Status: "to-do", DueDate: due, OwnerID: owner})
			require.NoError(t, err)
			return id
		}
		d1 := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
		d2 := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
		a1 := mk(a.ID, "Write 50% report", &d2)
		b1 := mk(b.ID, "write tests", &d1)

		got, err := s.Tasks().ListTasks(ctx, store.TaskQuery{Scope: store.OwnerScope{OwnerID: a.ID}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, a1, got[0].ID)

		got, err = s.Tasks().ListTasks(ctx, store.TaskQuery{
			Scope:  store.OwnerScope{All: true},
			Filter: store.TaskFilter{Field: store.TaskFieldDueDate, Values: []string{"2024-03-01"}},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, b1, got[0].ID)

		got, err = s.Tasks().ListTasks(ctx, store.TaskQuery{Scope: store.OwnerScope{All: true}, SearchTitle: "%"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, a1, got[0].ID)

		got, err = s.Tasks().ListTasks(ctx, store.TaskQuery{Scope: store.OwnerScope{All: true}, SortBy: store.TaskSortDueDate, Descending: true})
		require.NoError(t, err)
		require.Equal(t, a1, got[0].ID)

		deleted, err := s.Tasks().DeleteTask(ctx, b1, store.OwnerScope{OwnerID: a.ID})
		require.NoError(t, err)
		require.False(t, deleted)

		require.NoError(t, s.Users().DeleteUser(ctx, b.ID))
		_, err = s.Tasks().GetTask(ctx, b1, store.OwnerScope{All: true})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent role creation", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.WithTx(ctx, func(tx store.Tx) error {
					return tx.Roles().CreateRole(ctx, "auditor")
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})
}

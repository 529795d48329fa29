package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// SeedConfig describes the initial administrator.
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string

	// AdminPassword is generated and logged once when empty.
	AdminPassword string
}

type BootstrapService struct {
	Store store.Store
	Now   func() time.Time
}

// Seed makes sure the role catalogue and the administrator exist. It is
// safe to run on every start: an existing administrator is left alone.
func (s *BootstrapService) Seed(ctx context.Context, cfg SeedConfig) (bool, error) {
	l := slogx.FromContext(ctx)

	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		return false, fmt.Errorf("%w: admin username is required", ErrConfiguration)
	}
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		email = strings.ToLower(username) + "@localhost"
	}

	for _, role := range domain.KnownRoles {
		if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
			return false, storageErr(err)
		}
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		l.Debug("admin user already present", slog.String("username", username))
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, storageErr(err)
	}

	password := cfg.AdminPassword
	generated := password == ""
	if generated {
		p, err := cryptox.GeneratePassword()
		if err != nil {
			return false, err
		}
		password = p
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return false, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	admin := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, admin); err != nil {
			return err
		}
		return tx.Roles().AddUserToRole(ctx, admin.ID, domain.RoleAdmin)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// another instance seeded concurrently
			return false, nil
		}
		l.Error("failed to create admin user", slog.Any("error", err))
		return false, storageErr(err)
	}

	if generated {
		l.Warn("generated admin password, change it after first login",
			slog.String("username", username),
			slog.String("password", password),
		)
	}
	l.Info("seeded admin user", slog.String("admin_user_id", admin.ID))
	return true, nil
}

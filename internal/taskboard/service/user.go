package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

type UserService struct {
	Store store.Store
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, storageErr(err)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

// UsersInRole is derived from the role column of each user. The role name
// is matched case-insensitively; an unknown role is ErrValidation.
func (s *UserService) UsersInRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	known, ok := domain.ParseRole(string(role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	users, err := s.Store.Users().ListUsersByRole(ctx, known)
	if err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

// DeleteUser removes the user and, through the schema, their tasks.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storageErr(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id))
	return nil
}

package tasksdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the session's own account.
func (s *Session) Me(ctx context.Context) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeEnvelope(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers requires the admin role.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users", nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := decodeEnvelope(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser requires the admin role. The user's tasks go with them.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil, http.StatusOK)
}

package service

import (
	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
)

// Caller is the authenticated principal behind a request.
type Caller struct {
	ID   string
	Role domain.Role
}

// CallerFromClaims derives the caller from verified access claims. Any role
// other than admin, including none, yields a non-admin caller.
func CallerFromClaims(c jwtx.Claims) Caller {
	caller := Caller{ID: c.UserID}
	switch {
	case c.HasRole(string(domain.RoleAdmin)):
		caller.Role = domain.RoleAdmin
	case c.HasRole(string(domain.RoleUser)):
		caller.Role = domain.RoleUser
	}
	return caller
}

// Scope is the set of tasks a caller may see or change.
type Scope struct {
	All     bool
	OwnerID string
}

// ScopeFor is the authorization policy: admins see everything, everyone
// else sees only their own tasks.
func ScopeFor(caller Caller) Scope {
	if caller.Role == domain.RoleAdmin {
		return Scope{All: true}
	}
	return Scope{OwnerID: caller.ID}
}

// Allows reports whether a task owned by ownerID is inside the scope.
func (s Scope) Allows(ownerID string) bool {
	return s.All || (s.OwnerID != "" && s.OwnerID == ownerID)
}

func (s Scope) owner() store.OwnerScope {
	return store.OwnerScope{All: s.All, OwnerID: s.OwnerID}
}

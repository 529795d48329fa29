package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
)

type UsersHandler struct {
	UserService *service.UserService
}

func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.UserService.Me(r.Context(), caller.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, viewOf(user), "")
}

// HandleList is admin only. ?role= narrows the list to one role.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		users []domain.User
		err   error
	)
	if role := r.URL.Query().Get("role"); role != "" {
		users, err = h.UserService.UsersInRole(r.Context(), domain.Role(role))
	} else {
		users, err = h.UserService.ListUsers(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	httpx.WriteSuccess(w, http.StatusOK, views, "Users retrieved successfully.")
}

// HandleDelete is admin only. The user's tasks are removed with them.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteFail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), id.String()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, nil, "User deleted successfully.")
}

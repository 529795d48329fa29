package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

type AuthHandler struct {
	AuthService  *service.AuthService
	TokenService *service.TokenService
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userView struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func viewOf(u domain.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// HandleRegister creates a user account. Self registration always yields
// the user role.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            string(domain.RoleUser),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, viewOf(user), "User registered successfully.")
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Username, req.Password, req.RememberMe)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, pair, "Login successful.")
}

// HandleRefresh rotates a refresh token into a new token pair.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	pair, err := h.TokenService.RotateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, pair, "Token refreshed.")
}

// HandleLogout drops the caller's refresh token. Access tokens stay valid
// until they expire.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.TokenService.RevokeRefreshToken(r.Context(), caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, nil, "Logged out.")
}

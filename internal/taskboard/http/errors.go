package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// writeServiceError maps a service error onto the response envelope.
// Client errors carry their message; anything else is logged and answered
// with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrBadBody):
		httpx.WriteFail(w, http.StatusBadRequest, "invalid request body")
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidQuery):
		httpx.WriteFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteFail(w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
	case errors.Is(err, service.ErrInvalidCredential), errors.Is(err, service.ErrExpiredCredential):
		httpx.WriteFail(w, http.StatusUnauthorized, "invalid or expired credential")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteFail(w, http.StatusNotFound, "not found")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// callerFrom returns the authenticated caller. Routes behind
// AuthnMiddleware always have one.
func callerFrom(r *http.Request) (service.Caller, bool) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		return service.Caller{}, false
	}
	return service.CallerFromClaims(claims), true
}

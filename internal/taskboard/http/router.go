package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// RateLimits groups the per-route rate limit profiles.
type RateLimits struct {
	// Credentials guards register, login and refresh, keyed by IP.
	Credentials httpx.RateLimitConfig
	// API guards authenticated routes, keyed by user.
	API httpx.RateLimitConfig
}

// DefaultRateLimits are used when the application does not override them.
var DefaultRateLimits = RateLimits{
	Credentials: httpx.StrictLimit,
	API:         httpx.ModerateLimit,
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Limits       RateLimits
	AuthService  *service.AuthService
	TokenService *service.TokenService
	TaskService  *service.TaskService
	UserService  *service.UserService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultRateLimits,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTasks()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with bearer authentication and the per-user API limit.
func (r *Router) secured(h http.HandlerFunc, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{
		httpx.AuthnMiddleware(r.TokenService.ValidateAccessToken),
		httpx.RateLimitByUser(r.Limits.API),
	}, mws...)
	return httpx.Chain(h, chain...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, TokenService: r.TokenService}

	// Credential endpoints are limited per IP to slow down guessing.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister), httpx.RateLimitByIP(r.Limits.Credentials)),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin), httpx.RateLimitByIP(r.Limits.Credentials)),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh), httpx.RateLimitByIP(r.Limits.Credentials)),
	)
	r.Mux.Handle("POST /v1/auth/logout", r.secured(h.HandleLogout))
}

func (r *Router) registerTasks() {
	h := &TasksHandler{TaskService: r.TaskService}

	r.Mux.Handle("GET /v1/tasks", r.secured(h.HandleList))
	r.Mux.Handle("POST /v1/tasks", r.secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/tasks/{id}", r.secured(h.HandleGet))
	r.Mux.Handle("PUT /v1/tasks/{id}", r.secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/tasks/{id}", r.secured(h.HandleDelete))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}
	admin := httpx.RequireRole(string(domain.RoleAdmin))

	r.Mux.Handle("GET /v1/me", r.secured(h.HandleMe))
	r.Mux.Handle("GET /v1/users", r.secured(h.HandleList, admin))
	r.Mux.Handle("DELETE /v1/users/{id}", r.secured(h.HandleDelete, admin))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.verifier))
}

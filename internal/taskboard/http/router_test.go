package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "taskboard-http")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var generousLimit = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

type testServer struct {
	*httptest.Server
	router *Router
	boot   *service.BootstrapService
}

func newTestServer(t *testing.T, limits RateLimits) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := service.NewTokenService(st, "http-test-secret", service.TokenOptions{
		Issuer:   "taskboard",
		Audience: []string{"taskboard"},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(tokens.Verifier, "test", st, logger)
	r.Limits = limits
	r.TokenService = tokens
	r.AuthService = &service.AuthService{Store: st, Tokens: tokens}
	r.TaskService = &service.TaskService{Store: st}
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, router: r, boot: &service.BootstrapService{Store: st}}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, resp.StatusCode, env.Code)
	return resp, env
}

func (s *testServer) register(t *testing.T, username string) {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username":        username,
		"email":           username + "@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
}

func (s *testServer) login(t *testing.T, username string, rememberMe bool) domain.TokenPair {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"username":   username,
		"password":   "secret1",
		"rememberMe": rememberMe,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

	var pair domain.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	return pair
}

func (s *testServer) seedAdmin(t *testing.T) string {
	t.Helper()
	_, err := s.boot.Seed(context.Background(), service.SeedConfig{AdminUsername: "admin", AdminPassword: "secret1"})
	require.NoError(t, err)
	return s.login(t, "admin", false).AccessToken
}

func createTask(t *testing.T, s *testServer, token, title string) domain.Task {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/v1/tasks", token, map[string]any{"title": title})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var task domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func listTasks(t *testing.T, s *testServer, token, query string) []domain.Task {
	t.Helper()
	resp, env := s.do(t, http.MethodGet, "/v1/tasks"+query, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	return tasks
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})
	s.register(t, "alice")

	t.Run("duplicate registration", func(t *testing.T) {
		resp, env := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"username": "alice", "email": "other@example.com", "password": "secret1", "confirmPassword": "secret1",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, httpx.StatusFail, env.Status)
		require.Contains(t, env.Message, "username")
	})

	t.Run("role cannot be self assigned", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"username": "mallory", "email": "m@example.com", "password": "secret1", "confirmPassword": "secret1", "role": "admin",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad login", func(t *testing.T) {
		resp, env := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"username": "alice", "password": "nope123"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, service.ErrUnauthorized.Error(), env.Message)
	})

	pair := s.login(t, "alice", true)
	require.NotEmpty(t, pair.RefreshToken)

	t.Run("me", func(t *testing.T) {
		resp, env := s.do(t, http.MethodGet, "/v1/me", pair.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var me userView
		require.NoError(t, json.Unmarshal(env.Data, &me))
		require.Equal(t, "alice", me.Username)
		require.Equal(t, domain.RoleUser, me.Role)
	})

	var rotated domain.TokenPair
	t.Run("refresh rotates", func(t *testing.T) {
		resp, env := s.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.Unmarshal(env.Data, &rotated))
		require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		resp, _ = s.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout revokes refresh", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/v1/auth/logout", rotated.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = s.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": rotated.RefreshToken})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestBearerRequired(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})

	resp, env := s.do(t, http.MethodGet, "/v1/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, httpx.StatusFail, env.Status)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")

	resp, _ = s.do(t, http.MethodGet, "/v1/tasks", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerExpired(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})
	s.register(t, "alice")

	user, err := s.router.store.Users().GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)

	// Same secret and audience, but issued two hours ago.
	past, err := service.NewTokenService(s.router.store, "http-test-secret", service.TokenOptions{
		Issuer:   "taskboard",
		Audience: []string{"taskboard"},
		Now:      func() time.Time { return time.Now().Add(-2 * time.Hour) },
	})
	require.NoError(t, err)
	stale, _, err := past.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = s.router.TokenService.ValidateAccessToken(stale)
	require.ErrorIs(t, err, service.ErrExpiredCredential)

	resp, env := s.do(t, http.MethodGet, "/v1/me", stale, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, httpx.StatusFail, env.Status)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "token expired")

	// A token from another issuer is rejected by the same path.
	other, err := service.NewTokenService(s.router.store, "http-test-secret", service.TokenOptions{
		Issuer:   "elsewhere",
		Audience: []string{"taskboard"},
	})
	require.NoError(t, err)
	foreign, _, err := other.IssueAccessToken(user)
	require.NoError(t, err)

	resp, _ = s.do(t, http.MethodGet, "/v1/me", foreign, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "token verification failed")
}

func TestTaskScopeOverHTTP(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})
	s.register(t, "usera")
	s.register(t, "userb")
	tokA := s.login(t, "usera", false).AccessToken
	tokB := s.login(t, "userb", false).AccessToken
	tokAdmin := s.seedAdmin(t)

	a1 := createTask(t, s, tokA, "A1")
	createTask(t, s, tokA, "A2")
	b1 := createTask(t, s, tokB, "B1")

	require.Len(t, listTasks(t, s, tokA, ""), 2)
	require.Len(t, listTasks(t, s, tokB, ""), 1)
	require.Len(t, listTasks(t, s, tokAdmin, ""), 3)

	// another user's task looks exactly like a missing one
	foreign := "/v1/tasks/" + strconv.FormatInt(b1.ID, 10)
	missing := "/v1/tasks/999999"
	respF, envF := s.do(t, http.MethodGet, foreign, tokA, nil)
	respM, envM := s.do(t, http.MethodGet, missing, tokA, nil)
	require.Equal(t, http.StatusNotFound, respF.StatusCode)
	require.Equal(t, respM.StatusCode, respF.StatusCode)
	require.Equal(t, envM.Message, envF.Message)

	resp, _ := s.do(t, http.MethodPut, foreign, tokA, map[string]any{"title": "hijack"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, http.MethodDelete, foreign, tokA, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env := s.do(t, http.MethodPut, "/v1/tasks/"+strconv.FormatInt(a1.ID, 10), tokA, map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.Equal(t, "done", updated.Status)
	require.Equal(t, "A1", updated.Title)

	resp, _ = s.do(t, http.MethodDelete, foreign, tokAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/v1/tasks/abc", tokA, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTaskListQuery(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})
	s.register(t, "alice")
	tok := s.login(t, "alice", false).AccessToken

	resp, _ := s.do(t, http.MethodPost, "/v1/tasks", tok, map[string]any{"title": "Later", "dueDate": "2025-03-10T09:00:00Z"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/v1/tasks", tok, map[string]any{"title": "Sooner", "dueDate": "2025-03-01T09:00:00Z", "status": "done"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := listTasks(t, s, tok, "?sort=dueDate&az=asc")
	require.Equal(t, "Sooner", got[0].Title)

	got = listTasks(t, s, tok, "?filterField=status&filterValues=done%2Cblocked")
	require.Len(t, got, 1)
	require.Equal(t, "Sooner", got[0].Title)

	got = listTasks(t, s, tok, "?searchTitle=late")
	require.Len(t, got, 1)

	resp, env := s.do(t, http.MethodGet, "/v1/tasks?filterField=dropTable&filterValues=x", tok, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, httpx.StatusFail, env.Status)

	require.Empty(t, listTasks(t, s, tok, "?filterField=status&filterValues=archived"))
}

func TestTaskClearDueDate(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})
	s.register(t, "alice")
	tok := s.login(t, "alice", false).AccessToken

	resp, env := s.do(t, http.MethodPost, "/v1/tasks", tok, map[string]any{"title": "x", "dueDate": "2025-03-10T09:00:00Z"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	path := "/v1/tasks/" + strconv.FormatInt(task.ID, 10)

	_, env = s.do(t, http.MethodPut, path, tok, map[string]any{"title": "y"})
	var renamed domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &renamed))
	require.Equal(t, "y", renamed.Title)
	require.NotNil(t, renamed.DueDate)

	_, env = s.do(t, http.MethodPut, path, tok, map[string]any{"dueDate": nil})
	require.NotContains(t, string(env.Data), "dueDate")

	resp, env = s.do(t, http.MethodGet, path, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	require.Nil(t, cleared.DueDate)
	require.Equal(t, "y", cleared.Title)
}

func TestAdminUserRoutes(t *testing.T) {
	s := newTestServer(t, RateLimits{Credentials: generousLimit, API: generousLimit})
	s.register(t, "alice")
	tokAlice := s.login(t, "alice", false).AccessToken
	tokAdmin := s.seedAdmin(t)
	createTask(t, s, tokAlice, "mine")

	resp, _ := s.do(t, http.MethodGet, "/v1/users", tokAlice, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := s.do(t, http.MethodGet, "/v1/users", tokAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []userView
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)

	var aliceID string
	for _, u := range users {
		if u.Username == "alice" {
			aliceID = u.ID
		}
	}
	require.NotEmpty(t, aliceID)

	resp, env = s.do(t, http.MethodGet, "/v1/users?role=Admin", tokAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var admins []userView
	require.NoError(t, json.Unmarshal(env.Data, &admins))
	require.Len(t, admins, 1)
	require.Equal(t, "admin", admins[0].Username)

	resp, env = s.do(t, http.MethodGet, "/v1/users?role=user", tokAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members []userView
	require.NoError(t, json.Unmarshal(env.Data, &members))
	require.Len(t, members, 1)
	require.Equal(t, aliceID, members[0].ID)

	resp, _ = s.do(t, http.MethodGet, "/v1/users?role=auditor", tokAdmin, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/v1/users?role=user", tokAlice, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/v1/users/"+aliceID, tokAlice, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/v1/users/not-a-ulid", tokAdmin, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/v1/users/"+aliceID, tokAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, http.MethodDelete, "/v1/users/"+aliceID, tokAdmin, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Empty(t, listTasks(t, s, tokAdmin, ""))
}

func TestCredentialRateLimit(t *testing.T) {
	s := newTestServer(t, RateLimits{
		Credentials: httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 2},
		API:         generousLimit,
	})

	body := map[string]any{"username": "ghost", "password": "whatever"}
	for range 2 {
		resp, _ := s.do(t, http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, env := s.do(t, http.MethodPost, "/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, httpx.StatusFail, env.Status)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, DefaultRateLimits)

	resp, env := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, httpx.StatusSuccess, env.Status)

	resp, env = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	require.Equal(t, "ok", health.Checks.Database)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

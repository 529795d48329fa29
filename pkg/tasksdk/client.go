package tasksdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the taskboard API. It covers the public
// endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a user account. Self registration always yields the
// user role.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeEnvelope(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// LoginTokens exchanges credentials for tokens. The refresh token is only
// issued when rememberMe is set.
func (c *SDKClient) LoginTokens(ctx context.Context, username, password string, rememberMe bool) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", loginRequest{
		Username:   username,
		Password:   password,
		RememberMe: rememberMe,
	})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeEnvelope(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Login authenticates and returns a Session that refreshes itself.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	tokens, err := c.LoginTokens(ctx, username, password, true)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// RefreshTokens rotates a refresh token. The presented token stops working.
func (c *SDKClient) RefreshTokens(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeEnvelope(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// NewSessionFromTokens resumes a session from stored tokens.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int64) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeEnvelope(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks the database and token verifier.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeEnvelope(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

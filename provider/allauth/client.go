package allauth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	auth "github.com/goliatone/go-headless-auth"
)

const (
	defaultUserPath = "/api/users/{id}"
	maxErrorBody    = 512
)

// ClientKind selects the allauth headless client surface.
type ClientKind string

const (
	ClientApp     ClientKind = "app"
	ClientBrowser ClientKind = "browser"
)

// Config holds provider connection settings.
type Config struct {
	// BaseURL is the provider origin, e.g. "https://auth.example.com".
	BaseURL string

	// Kind defaults to ClientApp.
	Kind ClientKind

	// UserPath is the profile endpoint; "{id}" is replaced by the user id.
	UserPath string

	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to an allauth headless API. Every endpoint returns an
// auth.AuthResponse regardless of status; only transport failures and
// undecodable payloads are errors.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ auth.UserFetcher = (*Client)(nil)

// New creates a new provider client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Kind == "" {
		cfg.Kind = ClientApp
	}
	if cfg.UserPath == "" {
		cfg.UserPath = defaultUserPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
	}
}

// NewFromConfig builds a client from the package configuration.
func NewFromConfig(cfg auth.Config, timeout time.Duration) *Client {
	return New(Config{
		BaseURL:  cfg.GetProviderBaseURL(),
		UserPath: cfg.GetUserPath(),
		Timeout:  timeout,
	})
}

// LoginPayload is the body of Login.
type LoginPayload struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// SignupPayload is the body of Signup.
type SignupPayload struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

// PasswordResetPayload is the body of ResetPassword.
type PasswordResetPayload struct {
	Key      string `json:"key"`
	Password string `json:"password"`
}

// ProviderTokenPayload is the body of ProviderToken.
type ProviderTokenPayload struct {
	Provider string         `json:"provider"`
	Process  string         `json:"process"`
	Token    map[string]any `json:"token"`
}

// Session fetches the current authentication state.
func (c *Client) Session(ctx context.Context, headers http.Header) (auth.AuthResponse, error) {
	return c.call(ctx, "session", http.MethodGet, "/auth/session", headers, nil)
}

// Logout ends the provider session.
func (c *Client) Logout(ctx context.Context, headers http.Header) (auth.AuthResponse, error) {
	return c.call(ctx, "logout", http.MethodDelete, "/auth/session", headers, nil)
}

// Login authenticates with a password.
func (c *Client) Login(ctx context.Context, headers http.Header, payload LoginPayload) (auth.AuthResponse, error) {
	return c.call(ctx, "login", http.MethodPost, "/auth/login", headers, payload)
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, headers http.Header, payload SignupPayload) (auth.AuthResponse, error) {
	return c.call(ctx, "signup", http.MethodPost, "/auth/signup", headers, payload)
}

// Reauthenticate confirms the password of an authenticated user.
func (c *Client) Reauthenticate(ctx context.Context, headers http.Header, password string) (auth.AuthResponse, error) {
	return c.call(ctx, "reauthenticate", http.MethodPost, "/auth/reauthenticate", headers, map[string]string{
		"password": password,
	})
}

// RequestPasswordReset sends a reset email.
func (c *Client) RequestPasswordReset(ctx context.Context, headers http.Header, email string) (auth.AuthResponse, error) {
	return c.call(ctx, "password_reset_request", http.MethodPost, "/auth/password/request", headers, map[string]string{
		"email": email,
	})
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, headers http.Header, payload PasswordResetPayload) (auth.AuthResponse, error) {
	return c.call(ctx, "password_reset", http.MethodPost, "/auth/password/reset", headers, payload)
}

// ProviderToken authenticates with a third party provider token.
func (c *Client) ProviderToken(ctx context.Context, headers http.Header, payload ProviderTokenPayload) (auth.AuthResponse, error) {
	return c.call(ctx, "provider_token", http.MethodPost, "/auth/provider/token", headers, payload)
}

// ProviderSignup completes a pending third party signup.
func (c *Client) ProviderSignup(ctx context.Context, headers http.Header, payload SignupPayload) (auth.AuthResponse, error) {
	return c.call(ctx, "provider_signup", http.MethodPost, "/auth/provider/signup", headers, payload)
}

// MFAAuthenticate submits a second factor code during login.
func (c *Client) MFAAuthenticate(ctx context.Context, headers http.Header, code string) (auth.AuthResponse, error) {
	return c.call(ctx, "mfa_authenticate", http.MethodPost, "/auth/2fa/authenticate", headers, map[string]string{
		"code": code,
	})
}

// MFAReauthenticate submits a second factor code to step up.
func (c *Client) MFAReauthenticate(ctx context.Context, headers http.Header, code string) (auth.AuthResponse, error) {
	return c.call(ctx, "mfa_reauthenticate", http.MethodPost, "/auth/2fa/reauthenticate", headers, map[string]string{
		"code": code,
	})
}

// RequestLoginCode starts a login by code.
func (c *Client) RequestLoginCode(ctx context.Context, headers http.Header, email string) (auth.AuthResponse, error) {
	return c.call(ctx, "login_code_request", http.MethodPost, "/auth/code/request", headers, map[string]string{
		"email": email,
	})
}

// ConfirmLoginCode completes a login by code.
func (c *Client) ConfirmLoginCode(ctx context.Context, headers http.Header, code string) (auth.AuthResponse, error) {
	return c.call(ctx, "login_code_confirm", http.MethodPost, "/auth/code/confirm", headers, map[string]string{
		"code": code,
	})
}

// VerifyEmail confirms an email verification key.
func (c *Client) VerifyEmail(ctx context.Context, headers http.Header, key string) (auth.AuthResponse, error) {
	return c.call(ctx, "verify_email", http.MethodPost, "/auth/email/verify", headers, map[string]string{
		"key": key,
	})
}

// WebAuthnLogin submits a passkey assertion.
func (c *Client) WebAuthnLogin(ctx context.Context, headers http.Header, credential json.RawMessage) (auth.AuthResponse, error) {
	return c.call(ctx, "webauthn_login", http.MethodPost, "/auth/webauthn/login", headers, map[string]any{
		"credential": credential,
	})
}

// WebAuthnSignup submits a passkey attestation for a new account.
func (c *Client) WebAuthnSignup(ctx context.Context, headers http.Header, name string, credential json.RawMessage) (auth.AuthResponse, error) {
	return c.call(ctx, "webauthn_signup", http.MethodPut, "/auth/webauthn/signup", headers, map[string]any{
		"name":       name,
		"credential": credential,
	})
}

// FetchUser implements auth.UserFetcher.
func (c *Client) FetchUser(ctx context.Context, id auth.UserID, headers http.Header) ([]byte, error) {
	path := strings.ReplaceAll(c.config.UserPath, "{id}", url.PathEscape(id.String()))

	status, body, err := c.do(ctx, http.MethodGet, c.config.BaseURL+path, headers, nil)
	if err != nil {
		return nil, wrapProviderError(&ProviderError{Operation: "fetch_user", Method: http.MethodGet, Path: path, Err: err})
	}
	if status < 200 || status > 299 {
		return nil, wrapProviderError(&ProviderError{
			Operation: "fetch_user",
			Method:    http.MethodGet,
			Path:      path,
			Status:    status,
			Body:      truncate(body),
		})
	}
	return body, nil
}

func (c *Client) endpoint(path string) string {
	return c.config.BaseURL + "/_allauth/" + string(c.config.Kind) + "/v1" + path
}

func (c *Client) call(ctx context.Context, operation, method, path string, headers http.Header, payload any) (auth.AuthResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	status, raw, err := c.do(ctx, method, c.endpoint(path), headers, body)
	if err != nil {
		return nil, wrapProviderError(&ProviderError{Operation: operation, Method: method, Path: path, Err: err})
	}

	resp, err := auth.DecodeResponse(raw)
	if err != nil {
		if status >= http.StatusInternalServerError {
			return nil, wrapProviderError(&ProviderError{
				Operation: operation,
				Method:    method,
				Path:      path,
				Status:    status,
				Body:      truncate(raw),
				Err:       err,
			})
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, target string, headers http.Header, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, err
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}

// Package client is a Go client for the AgriConnect API that keeps the
// signed-in session in a pluggable Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agriconnect api: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type SignupRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserFilter narrows ListUsers. Zero values are not sent.
type UserFilter struct {
	Role     string
	Verified *bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithStore(s Store) Option {
	return func(c *Client) { c.store = s }
}

type Client struct {
	baseURL string
	http    *http.Client
	store   Store
	now     func() time.Time
}

// New creates a client for baseURL, e.g. "http://localhost:8080/api/v1".
// Sessions are kept in memory unless WithStore is given.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   NewMemoryStore(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

// Signup registers an account and stores the returned session
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	return c.authenticate(ctx, "/auth/signup", req)
}

// Login signs in for the given role and stores the returned session
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	return c.authenticate(ctx, "/auth/login", req)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*Session, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return nil, err
	}
	s := &Session{User: resp.User, Token: resp.Token}
	if err := c.store.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Logout forgets the stored session. Tokens are stateless, so nothing is sent to the server.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// Session returns the stored session while its token is unexpired. An expired
// session is cleared and reported as ErrNoSession.
func (c *Client) Session() (*Session, error) {
	s, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSession
	}
	if !s.Valid(c.now()) {
		if err := c.store.Clear(); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return s, nil
}

// Refresh re-reads the signed-in user (e.g. after an admin verified them) and stores it
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}

	var resp struct {
		User User `json:"user"`
	}
	if err := c.authorized(ctx, s, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	s.User = resp.User
	if err := c.store.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListUsers returns all users, newest first (admin only)
func (c *Client) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if filter.Role != "" {
		q.Set("role", filter.Role)
	}
	if filter.Verified != nil {
		q.Set("verified", strconv.FormatBool(*filter.Verified))
	}
	path := "/admin/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.authorized(ctx, s, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// SetVerification marks a user verified or unverified (admin only) and returns the server's message
func (c *Client) SetVerification(ctx context.Context, userID string, verified bool) (string, error) {
	s, err := c.Session()
	if err != nil {
		return "", err
	}

	body := map[string]any{"userId": userID, "verified": verified}
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.authorized(ctx, s, http.MethodPost, "/auth/verify-user", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// authorized sends a bearer request. A 401 means the server no longer accepts
// the token, so the stored session is dropped.
func (c *Client) authorized(ctx context.Context, s *Session, method, path string, in, out any) error {
	err := c.do(ctx, method, path, s.Token, in, out)
	if IsStatus(err, http.StatusUnauthorized) {
		_ = c.store.Clear()
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

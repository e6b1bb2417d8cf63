package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agriconnect/internal/apperr"
	"agriconnect/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthService struct {
	user  *model.User
	token string
	err   error
	got   model.SignupRequest
}

func (s *stubAuthService) Signup(_ context.Context, req model.SignupRequest) (*model.User, string, error) {
	s.got = req
	return s.user, s.token, s.err
}

func (s *stubAuthService) Login(context.Context, model.LoginRequest) (*model.User, string, error) {
	return s.user, s.token, s.err
}

type stubUserService struct {
	users       []*model.User
	err         error
	gotFilters  model.UserFilters
	gotVerified *bool
}

func (s *stubUserService) ListUsers(_ context.Context, filters model.UserFilters) ([]*model.User, error) {
	s.gotFilters = filters
	return s.users, s.err
}

func (s *stubUserService) GetUser(context.Context, string) (*model.User, error) {
	if len(s.users) == 0 {
		return nil, s.err
	}
	return s.users[0], s.err
}

func (s *stubUserService) SetVerification(_ context.Context, _ string, verified bool) error {
	s.gotVerified = &verified
	return s.err
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newAuthRouter(auth *stubAuthService, users *stubUserService, log zerolog.Logger) *gin.Engine {
	h := NewAuthHandler(auth, users, nil, log)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	h.RegisterAuthRoutes(r.Group("/api/v1"), pass, pass, pass)
	return r
}

func TestSignup_InternalErrorIsOpaqueAndLogged(t *testing.T) {
	var logs bytes.Buffer
	auth := &stubAuthService{err: apperr.Internal("failed to create user", errors.New("pq: connection refused on 10.0.0.5"))}
	r := newAuthRouter(auth, &stubUserService{}, zerolog.New(&logs))

	rec := serve(r, http.MethodPost, "/api/v1/auth/signup", `{"name":"Asha","phone":"9876543210","password":"secret12","role":"farmer"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "connection refused")
}

func TestSignup_PassesBodyThrough(t *testing.T) {
	auth := &stubAuthService{user: &model.User{ID: "u1", Name: "Asha", Role: model.RoleFarmer}, token: "tok"}
	r := newAuthRouter(auth, &stubUserService{}, zerolog.Nop())

	rec := serve(r, http.MethodPost, "/api/v1/auth/signup", `{"name":"Asha","phone":"9876543210","password":"secret12","role":"farmer"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "9876543210", auth.got.Phone)
	assert.Contains(t, rec.Body.String(), `"token":"tok"`)
	assert.Contains(t, rec.Body.String(), `"verifiedAt":null`)
}

func TestLogin_AuthErrorMessage(t *testing.T) {
	auth := &stubAuthService{err: apperr.Unauthorized("Invalid credentials or role")}
	r := newAuthRouter(auth, &stubUserService{}, zerolog.Nop())

	rec := serve(r, http.MethodPost, "/api/v1/auth/login", `{"phone":"9876543210","password":"x","role":"farmer"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials or role"}`, rec.Body.String())
}

func TestVerifyUser_Binding(t *testing.T) {
	users := &stubUserService{}
	r := newAuthRouter(&stubAuthService{}, users, zerolog.Nop())

	rec := serve(r, http.MethodPost, "/api/v1/auth/verify-user", `{"userId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, users.gotVerified)

	rec = serve(r, http.MethodPost, "/api/v1/auth/verify-user", `{"verified":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodPost, "/api/v1/auth/verify-user", `{"userId":"u1","verified":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, users.gotVerified)
	assert.False(t, *users.gotVerified)
	assert.JSONEq(t, `{"message":"User unverified successfully"}`, rec.Body.String())
}

func TestVerifyUser_NotFound(t *testing.T) {
	users := &stubUserService{err: apperr.NotFound("User not found")}
	r := newAuthRouter(&stubAuthService{}, users, zerolog.Nop())

	rec := serve(r, http.MethodPost, "/api/v1/auth/verify-user", `{"userId":"nope","verified":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, rec.Body.String())
}

func TestListUsers_ParsesFilters(t *testing.T) {
	users := &stubUserService{users: []*model.User{{ID: "u1", Name: "Asha", PasswordHash: "secret-hash", Role: model.RoleFarmer}}}
	h := NewAdminHandler(users, zerolog.Nop())
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	h.RegisterAdminRoutes(r.Group("/api/v1"), pass, pass)

	rec := serve(r, http.MethodGet, "/api/v1/admin/users?role=farmer&verified=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, users.gotFilters.Role)
	assert.Equal(t, model.RoleFarmer, *users.gotFilters.Role)
	require.NotNil(t, users.gotFilters.Verified)
	assert.True(t, *users.gotFilters.Verified)
	assert.False(t, strings.Contains(rec.Body.String(), "secret-hash"))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	healthy := NewHealthHandler(pingerFunc(func(context.Context) error { return nil }), "sqlite", zerolog.Nop())
	down := NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("down") }), "postgres", zerolog.Nop())

	r := gin.New()
	r.GET("/ok", healthy.Health)
	r.GET("/down", down.Health)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/down", "").Code)
}

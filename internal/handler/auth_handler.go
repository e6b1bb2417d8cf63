package handler

import (
	"errors"
	"io"
	"net/http"

	"agriconnect/internal/apperr"
	"agriconnect/internal/metrics"
	"agriconnect/internal/middleware"
	"agriconnect/internal/model"
	"agriconnect/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	auth    service.AuthService
	users   service.UserService
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth service.AuthService, users service.UserService, m *metrics.Metrics, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, metrics: m, log: log}
}

// bindJSON treats an empty body like an empty object so the service reports missing fields.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		h.metrics.ObserveAuth("signup", string(apperr.KindOf(err)))
		respondError(c, h.log, err)
		return
	}

	user, token, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.metrics.ObserveAuth("signup", string(apperr.KindOf(err)))
		respondError(c, h.log, err)
		return
	}

	h.metrics.ObserveAuth("signup", "success")
	c.JSON(http.StatusCreated, model.AuthResponse{
		Message: "User created successfully",
		User:    user,
		Token:   token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		h.metrics.ObserveAuth("login", string(apperr.KindOf(err)))
		respondError(c, h.log, err)
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.metrics.ObserveAuth("login", string(apperr.KindOf(err)))
		respondError(c, h.log, err)
		return
	}

	h.metrics.ObserveAuth("login", "success")
	c.JSON(http.StatusOK, model.AuthResponse{
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

// Me returns the stored record of the token's user, which may be fresher than the token claims
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.GetString(middleware.AuthUserKey))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// VerifyUser sets or clears a user's verification (admin only)
func (h *AuthHandler) VerifyUser(c *gin.Context) {
	var req model.VerifyUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, service.ErrUserIDRequired)
		return
	}

	if err := h.users.SetVerification(c.Request.Context(), req.UserID, *req.Verified); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.metrics.ObserveVerification(*req.Verified)
	message := "User unverified successfully"
	if *req.Verified {
		message = "User verified successfully"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, rateLimitMW, jwtAuthMW, adminRoleMW gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/signup", rateLimitMW, h.Signup)
		authGroup.POST("/login", rateLimitMW, h.Login)
		authGroup.GET("/me", jwtAuthMW, h.Me)
		authGroup.POST("/verify-user", jwtAuthMW, adminRoleMW, h.VerifyUser)
	}
}

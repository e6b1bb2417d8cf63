package handler

import (
	"net/http"
	"strconv"

	"agriconnect/internal/apperr"
	"agriconnect/internal/model"
	"agriconnect/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminHandler serves the admin user directory
type AdminHandler struct {
	users service.UserService
	log   zerolog.Logger
}

func NewAdminHandler(users service.UserService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, log: log}
}

func parseUserFilters(c *gin.Context) (model.UserFilters, error) {
	var filters model.UserFilters
	if v := c.Query("role"); v != "" {
		role := model.Role(v)
		if !role.Valid() {
			return filters, apperr.Validation("Invalid role filter")
		}
		filters.Role = &role
	}
	if v := c.Query("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			return filters, apperr.Validation("Invalid verified filter")
		}
		filters.Verified = &verified
	}
	return filters, nil
}

// ListUsers returns all users, newest first, optionally filtered by role and verified
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filters, err := parseUserFilters(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	users, err := h.users.ListUsers(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// RegisterAdminRoutes registers admin routes behind both auth middlewares
func (h *AdminHandler) RegisterAdminRoutes(rg *gin.RouterGroup, jwtAuthMW, adminRoleMW gin.HandlerFunc) {
	adminGroup := rg.Group("/admin", jwtAuthMW, adminRoleMW)
	{
		adminGroup.GET("/users", h.ListUsers)
	}
}

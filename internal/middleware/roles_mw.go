package middleware

import (
	"net/http"
	"strings"

	"agriconnect/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware allows only the given roles. It must run after JWTAuthMiddleware.
func RoleMiddleware(allowedRoles ...model.Role) gin.HandlerFunc {
	roleSet := make(map[model.Role]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}
	forbidden := forbiddenMessage(allowedRoles)

	return func(c *gin.Context) {
		roleVal, exists := c.Get(AuthRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userRole, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid role type in token"})
			return
		}

		if _, ok := roleSet[model.Role(userRole)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": forbidden})
			return
		}

		c.Next()
	}
}

// forbiddenMessage names the allowed roles, e.g. "Farmer or consumer access required"
func forbiddenMessage(roles []model.Role) string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	msg := strings.Join(names, " or ")
	if msg == "" {
		return "Access denied"
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + " access required"
}

// AdminMiddleware checks if the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}

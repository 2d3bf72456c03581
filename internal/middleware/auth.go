package middleware

import (
	"net/http"
	"slices"
	"strings"

	"project-management-api/internal/auth"
	"project-management-api/internal/handlers/apierr"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	EmployeeIDKey = "employee_id"
	EmailKey      = "email"
	RoleKey       = "role"
	ClaimsKey     = "claims"
)

// JWTAuthMiddleware validates the bearer token in the Authorization header.
// Browsers cannot set headers on a websocket upgrade, so a "token" query
// parameter is accepted as well.
func JWTAuthMiddleware(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			apierr.WriteApiErrJSON(c, http.StatusUnauthorized, apierr.MissingToken)
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			apierr.WriteApiErrJSON(c, http.StatusUnauthorized, apierr.Unauthorized)
			return
		}

		c.Set(EmployeeIDKey, claims.EmployeeID)
		c.Set(EmailKey, claims.Email)
		c.Set(RoleKey, claims.Role)
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

// RequireRole lets the request through only when the role claim is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, c.GetString(RoleKey)) {
			apierr.WriteApiErrJSON(c, http.StatusForbidden, apierr.Forbidden)
			return
		}
		c.Next()
	}
}

// EmployeeID returns the authenticated employee, 0 outside the middleware.
func EmployeeID(c *gin.Context) uint {
	return c.GetUint(EmployeeIDKey)
}

// Claims returns the validated token claims, nil outside the middleware.
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

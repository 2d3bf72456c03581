package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"project-management-api/internal/auth"
	"project-management-api/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTokens() *auth.Tokens {
	return auth.NewTokens(config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "test",
		Audience: "test-clients",
		TTL:      time.Hour,
	})
}

func newRouter(tokens *auth.Tokens, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(tokens))
	handlers := append(extra, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": EmployeeID(c), "role": c.GetString(RoleKey)})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	tokens := newTokens()
	r := newRouter(tokens)

	token, _, err := tokens.Generate(7, "alice@example.com", "MEMBER")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":7,"role":"MEMBER"}`, w.Body.String())
}

func TestJWTAuthMiddleware_QueryToken(t *testing.T) {
	tokens := newTokens()
	r := newRouter(tokens)

	token, _, err := tokens.Generate(3, "bob@example.com", "MEMBER")
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r := newRouter(newTokens())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "authorization token is required")
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	tokens := newTokens()
	r := newRouter(tokens)

	token, claims, err := tokens.Generate(7, "alice@example.com", "MEMBER")
	require.NoError(t, err)
	tokens.Revoke(claims)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens()
	r := newRouter(tokens, RequireRole("ADMIN"))

	for role, want := range map[string]int{"ADMIN": http.StatusOK, "MEMBER": http.StatusForbidden} {
		token, _, err := tokens.Generate(1, "x@example.com", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, want, w.Code, role)
	}
}

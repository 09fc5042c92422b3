package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/prestashop-connector/internal/infrastructure/auth"
	"github.com/erp/prestashop-connector/internal/infrastructure/config"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.AuthConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "prestashop-connector",
	})
}

func newTestToken(t *testing.T, svc *auth.JWTService, scope string, ttl time.Duration) string {
	t.Helper()
	token, err := svc.GenerateToken("ops", scope, ttl)
	require.NoError(t, err)
	return token
}

func serveWithToken(router *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := newTestJWTService()

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		c.String(http.StatusOK, GetJWTSubject(c))
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	t.Run("valid token", func(t *testing.T) {
		w := serveWithToken(router, "/test", BearerPrefix+newTestToken(t, svc, auth.ScopeRead, time.Hour))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops", w.Body.String())
	})

	t.Run("skip path", func(t *testing.T) {
		w := serveWithToken(router, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"invalid format", "Basic dXNlcjpwYXNz", "UNAUTHORIZED"},
		{"empty token", BearerPrefix, "UNAUTHORIZED"},
		{"garbage token", BearerPrefix + "not-a-token", "INVALID_TOKEN"},
		{"expired token", BearerPrefix + newTestToken(t, svc, auth.ScopeRead, -time.Minute), "TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithToken(router, "/test", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestJWTAuthMiddleware_CustomOnError(t *testing.T) {
	var got error
	cfg := DefaultJWTConfig(newTestJWTService())
	cfg.OnError = func(c *gin.Context, err error) {
		got = err
		c.AbortWithStatus(http.StatusTeapot)
	}

	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serveWithToken(router, "/test", BearerPrefix+"bad")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, errors.Is(got, auth.ErrInvalidToken))

	w = serveWithToken(router, "/test", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, errors.Is(got, auth.ErrMissingToken))
}

func TestRequireScope(t *testing.T) {
	svc := newTestJWTService()

	router := gin.New()
	api := router.Group("/", JWTAuthMiddleware(svc))
	api.GET("/read", RequireScope(auth.ScopeRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	api.GET("/admin", RequireScope(auth.ScopeAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/anonymous", RequireScope(auth.ScopeRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	readToken := BearerPrefix + newTestToken(t, svc, auth.ScopeRead, time.Hour)
	adminToken := BearerPrefix + newTestToken(t, svc, auth.ScopeAdmin, time.Hour)

	assert.Equal(t, http.StatusOK, serveWithToken(router, "/read", readToken).Code)
	assert.Equal(t, http.StatusOK, serveWithToken(router, "/read", adminToken).Code)
	assert.Equal(t, http.StatusOK, serveWithToken(router, "/admin", adminToken).Code)

	w := serveWithToken(router, "/admin", readToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	assert.Equal(t, http.StatusUnauthorized, serveWithToken(router, "/anonymous", "").Code)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/pkg/metrics"
	"github.com/stretchr/testify/assert"
)

type stubResolver map[string]model.Identity

func (s stubResolver) Resolve(_ context.Context, authorization string) (model.Identity, error) {
	switch authorization {
	case "":
		return model.Identity{}, nil
	case "Bearer down":
		return model.Identity{}, errors.New("dial tcp: connection refused")
	}
	identity, ok := s[authorization]
	if !ok {
		return model.Identity{}, service.ErrInvalidCredential
	}
	return identity, nil
}

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	auth := NewAuthMiddleware(stubResolver{
		"Bearer admin": {UserAppID: "admin1", Role: model.RoleAdmin, Admin: true},
		"Bearer mgr":   {UserAppID: "mgr1", Role: model.RoleRegion},
	})
	router.Use(auth.Identify())
	return router, auth
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"identity": GetIdentity(c), "authorization": GetAuthorization(c)})
}

func serve(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Identify_AnonymousPassesThrough(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/test", whoami)

	w := serve(router, "/test", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userAppId":""`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_Identify_Success(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/test", whoami)

	w := serve(router, "/test", "Bearer mgr")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userAppId":"mgr1"`)
	assert.Contains(t, w.Body.String(), `"authorization":"Bearer mgr"`)
}

func TestAuthMiddleware_Identify_QueryToken(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/test", whoami)

	w := serve(router, "/test?token=admin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":true`)
}

func TestAuthMiddleware_Identify_InvalidCredential(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/test", whoami)

	w := serve(router, "/test", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID")
}

func TestAuthMiddleware_Identify_ProviderDown(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/test", whoami)

	w := serve(router, "/test", "Bearer down")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_PROVIDER_UNAVAILABLE")
}

func TestAuthMiddleware_RequireAuthenticated(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/test", auth.RequireAuthenticated(), whoami)

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/test", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/test", "Bearer mgr").Code)
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/test", auth.RequireAdmin(), whoami)

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/test", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/test", "Bearer mgr").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/test", "Bearer admin").Code)
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/test", whoami)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestMetricsMiddleware_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	router := gin.New()
	router.Use(MetricsMiddleware(m))
	router.GET("/edits/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(router, "/edits/abc", "")
	serve(router, "/edits/def", "")
	serve(router, "/nowhere", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/edits/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"project-management-api/internal/apperr"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveOp_LabelsByKind(t *testing.T) {
	before := promtest.ToFloat64(opEvents.WithLabelValues("test.op", "error", "CONFLICT"))
	ObserveOp("test.op", time.Now(), fmt.Errorf("wrapped: %w", apperr.ErrConflict))
	after := promtest.ToFloat64(opEvents.WithLabelValues("test.op", "error", "CONFLICT"))
	require.Equal(t, before+1, after)

	ObserveOp("test.op", time.Now(), errors.New("db gone"))
	require.Equal(t, 1.0, promtest.ToFloat64(opEvents.WithLabelValues("test.op", "error", "internal")))

	ObserveOp("test.op", time.Now(), nil)
	require.Equal(t, 1.0, promtest.ToFloat64(opEvents.WithLabelValues("test.op", "success", "")))
}

func TestGinMiddleware_CountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware)
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/7", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, 1.0, promtest.ToFloat64(httpRequests.WithLabelValues("/things/:id", "GET", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "http_requests_total")
}

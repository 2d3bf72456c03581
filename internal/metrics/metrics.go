package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"project-management-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.DefaultRegisterer

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by path/method/code.",
		},
		[]string{"path", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by path/method/code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "code"},
	)

	opEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_operations_total",
			Help: "Manager operations by name, result and error kind.",
		},
		[]string{"op", "result", "kind"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "domain_operation_duration_seconds",
			Help:    "Duration of manager operations by name and result.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	blobDeleteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attachment_blob_delete_failures_total",
			Help: "Blob deletions that failed after the attachment record was removed.",
		},
	)
)

func GinMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	code := strconv.Itoa(c.Writer.Status())
	path := c.FullPath()

	// unmatched routes have no FullPath
	if path == "" {
		path = c.Request.URL.Path
	}

	if path == "/metrics" || strings.HasPrefix(path, "/debug/pprof/") {
		return
	}

	method := c.Request.Method

	httpRequests.WithLabelValues(path, method, code).Inc()
	httpDuration.WithLabelValues(path, method, code).Observe(time.Since(start).Seconds())
}

func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ObserveOp records one manager operation labelled by error kind.
func ObserveOp(op string, start time.Time, err error) {
	result := "success"
	kind := ""
	if err != nil {
		result = "error"
		kind = "internal"
		if k := apperr.Kind(err); k != nil {
			kind = k.Error()
		}
	}
	opEvents.WithLabelValues(op, result, kind).Inc()
	opDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func BlobDeleteFailed() {
	blobDeleteFailures.Inc()
}

func init() {
	collectors := []prometheus.Collector{
		httpRequests,
		httpDuration,
		opEvents,
		opDuration,
		blobDeleteFailures,
	}

	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
}

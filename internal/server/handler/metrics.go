package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	vlRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultline_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	vlRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultline_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	vlTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultline_transfers_total",
		Help: "Transfer attempts by outcome (ok, rejected, failed).",
	}, []string{"status"})

	vlAuthRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultline_auth_rejections_total",
		Help: "Requests rejected by the authorization gate.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
// Gate rejections are counted separately so a credential-stuffing run shows up
// even when request volume looks normal.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		vlRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		vlRequestDuration.WithLabelValues(method, path).Observe(duration)
		if status == 401 {
			vlAuthRejectionsTotal.Inc()
		}
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordTransfer records a transfer attempt outcome.
func RecordTransfer(status string) {
	vlTransfersTotal.WithLabelValues(status).Inc()
}

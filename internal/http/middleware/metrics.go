// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic: request
// counts, latencies, in-flight concurrency and response sizes, labelled by
//
//   - method: HTTP method verb (GET/POST/…)
//   - path:   the registered Gin route (e.g. /api/v1/matches/:id/timer);
//     falls back to the raw URL path when no route matched
//   - status: numeric status code as a string (e.g. "200", "404")
//
// Server-sent event streams stay open for as long as a fan watches the clock,
// so they are measured apart from ordinary requests: a gauge of open streams
// and a histogram of stream lifetimes. Keeping them out of the latency
// histogram stops one long stream from hiding real latency regressions.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of non-streaming HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10, // 200B..5KiB
				10 << 10, 25 << 10, 50 << 10, // 10..50KiB
				100 << 10, 250 << 10, 500 << 10, // 100..500KiB
				1 << 20, 2 << 20, 5 << 20, // 1..5MiB
			},
		},
		[]string{"method", "path"},
	)

	httpStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_event_streams_open",
			Help: "Server-sent event streams currently open.",
		},
	)

	httpStreamDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_event_stream_duration_seconds",
			Help:    "Lifetime of server-sent event streams in seconds.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpStreams, httpStreamDur)
}

// StreamOpened and StreamClosed bracket a server-sent event stream; handlers
// call them around their write loop.
func StreamOpened() { httpStreams.Inc() }

// StreamClosed marks the end of a stream opened with StreamOpened.
func StreamClosed() { httpStreams.Dec() }

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// Mount promhttp.Handler() separately to expose the collectors.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		if isEventStream(c) {
			httpStreamDur.WithLabelValues(path).Observe(dur)
			return
		}
		httpLat.WithLabelValues(method, path).Observe(dur)
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

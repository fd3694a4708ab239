package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Labels are the registered route (or "unmatched") and the status code, so
// cardinality stays bounded by the handful of ops routes.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ops_http_requests_total",
			Help: "Requests served by the ops server.",
		},
		[]string{"method", "route", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ops_http_request_duration_seconds",
			Help:    "Ops server request latency.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ops_http_requests_inflight",
			Help: "Ops server requests currently being handled.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight)
}

// Metrics instruments every request with the ops_http_* collectors.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := routeOf(c)
		httpReqs.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rota",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rota",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			// 1ms .. ~4s
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
		},
		[]string{"route"},
	)

	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rota",
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rota",
			Subsystem: "engine",
			Name:      "transitions_total",
			Help:      "Roster transitions by kind, operation and result.",
		},
		[]string{"kind", "op", "result"},
	)

	StoreCycle = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rota",
			Subsystem: "store",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one load-mutate-store cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"op", "outcome"},
	)

	StoreCorruption = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rota",
			Subsystem: "store",
			Name:      "corruption_total",
			Help:      "Persisted records that could not be parsed and were reset.",
		},
		[]string{"driver"},
	)

	FeedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rota",
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Currently connected feed subscribers.",
		},
	)

	FeedDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rota",
			Subsystem: "feed",
			Name:      "dropped_total",
			Help:      "Subscribers dropped because their buffer was full.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rota",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version).",
		},
		[]string{"version"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "rota",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		RequestsTotal, RequestDuration, InFlight,
		Transitions, StoreCycle, StoreCorruption,
		FeedSubscribers, FeedDropped,
		buildInfo, uptime,
	)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Instrument records request count and latency under the matched gin route.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		class := strconv.Itoa(c.Writer.Status()/100) + "xx"
		RequestsTotal.WithLabelValues(route, class).Inc()
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

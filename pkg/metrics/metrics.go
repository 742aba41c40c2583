package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var durationBuckets = []float64{
	// fast local handling
	5, 10, 25, 50, 100, 250, 500,
	// outbound gateway calls, incl. retries
	1000, 2500, 5000, 10000, 30000, 60000, 90000,
}

// Metrics bundles the HTTP middleware metrics and the payment-domain
// counters exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	reqCount    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec

	// CallbackResults counts gateway callbacks by action and result code.
	CallbackResults *prometheus.CounterVec
	// GatewayAttempts counts outbound request attempts by endpoint and outcome.
	GatewayAttempts *prometheus.CounterVec
	// Activations counts subscription activations by result.
	Activations *prometheus.CounterVec

	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reqCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by status, method and path.",
		}, []string{"status", "method", "path"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   durationBuckets,
		}, []string{"method", "path"}),
		CallbackResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "payment",
			Name:      "callback_results_total",
			Help:      "Gateway callback results by action and error code.",
		}, []string{"action", "code"}),
		GatewayAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "payment",
			Name:      "gateway_attempts_total",
			Help:      "Outbound gateway request attempts by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		Activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "payment",
			Name:      "subscription_activations_total",
			Help:      "Subscription activations triggered by completed payments.",
		}, []string{"result"}),
		log: log,
	}
	m.registry.MustRegister(m.reqCount, m.reqDuration, m.CallbackResults, m.GatewayAttempts, m.Activations)
	return m
}

// Middleware records request count and latency per gin route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.reqCount.WithLabelValues(strconv.Itoa(c.Writer.Status()), c.Request.Method, path).Inc()
		m.reqDuration.WithLabelValues(c.Request.Method, path).Observe(float64(time.Since(start).Milliseconds()))
	}
}

// Serve exposes /metrics on its own listener so the scrape port stays
// separate from the API port.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.log.Errorw("metrics listener stopped", "addr", addr, "err", err)
		}
	}()
}

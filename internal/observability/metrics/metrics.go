package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the reconciliation engine counters.
type Metrics struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration prometheus.Histogram
	notifications   *prometheus.CounterVec
	lyricsTriggers  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		webhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serenata",
			Name:      "webhook_events_total",
			Help:      "Inbound payment webhook deliveries by outcome and match strategy.",
		}, []string{"outcome", "strategy"}),
		webhookDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "serenata",
			Name:      "webhook_duration_seconds",
			Help:      "Webhook pipeline processing duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serenata",
			Name:      "notifications_total",
			Help:      "Payment confirmation notification attempts by result.",
		}, []string{"result"}),
		lyricsTriggers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serenata",
			Name:      "lyrics_triggers_total",
			Help:      "Content generation trigger attempts by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordWebhook(outcome, strategy string, duration time.Duration) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome, strategy).Inc()
	m.webhookDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLyricsTrigger(result string) {
	if m == nil {
		return
	}
	m.lyricsTriggers.WithLabelValues(result).Inc()
}

// HTTPMetrics instruments the gin engine.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serenata",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "serenata",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

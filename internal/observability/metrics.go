package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "notify_dispatch"

// Metrics holds the delivery and HTTP collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	notificationsSentTotal   *prometheus.CounterVec
	notificationsFailedTotal *prometheus.CounterVec
	notificationSendDuration *prometheus.HistogramVec
	providerFallbackTotal    *prometheus.CounterVec
}

// NewMetrics registers delivery collectors. Go and process collectors are
// only added when withRuntime is set, which keeps CLI textfile dumps small.
func NewMetrics(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: newCounterVec("http_requests_total",
			"HTTP requests handled, by method, route and status.",
			"method", "path", "status"),
		httpRequestDuration: newHistogramVec("http_request_duration_seconds",
			"HTTP request latency, by method and route.",
			prometheus.DefBuckets,
			"method", "path"),
		notificationsSentTotal: newCounterVec("notifications_sent_total",
			"Notifications accepted by a provider.",
			"channel", "provider"),
		notificationsFailedTotal: newCounterVec("notifications_failed_total",
			"Provider attempts that failed or could not be made, by failure kind.",
			"channel", "provider", "reason"),
		notificationSendDuration: newHistogramVec("notification_send_duration_seconds",
			"Time spent in one provider request.",
			prometheus.ExponentialBuckets(0.01, 2, 12),
			"channel", "provider"),
		providerFallbackTotal: newCounterVec("provider_fallback_total",
			"WhatsApp dispatches that moved on after a provider failed.",
			"from"),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.notificationsSentTotal,
		m.notificationsFailedTotal,
		m.notificationSendDuration,
		m.providerFallbackTotal,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

func newCounterVec(name string, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func newHistogramVec(name string, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// HTTPMiddleware records every request except scrapes of /metrics. Errors
// from the chain are rendered with the app's error handler first so the
// recorded status is the one the client sees.
func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		path := routePath(c)
		if path != "/metrics" {
			m.recordHTTPRequest(c.Method(), path, c.Response().StatusCode(), time.Since(start))
		}
		return nil
	}
}

func (m *Metrics) IncNotificationSent(channel string, provider string) {
	if m == nil {
		return
	}
	m.notificationsSentTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(provider)).Inc()
}

func (m *Metrics) IncNotificationFailed(channel string, provider string, reason string) {
	if m == nil {
		return
	}
	m.notificationsFailedTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveNotificationSendDuration(channel string, provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.notificationSendDuration.WithLabelValues(normalizeLabel(channel), normalizeLabel(provider)).Observe(max(duration.Seconds(), 0))
}

func (m *Metrics) IncProviderFallback(from string) {
	if m == nil {
		return
	}
	m.providerFallbackTotal.WithLabelValues(normalizeLabel(from)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, path).Observe(duration.Seconds())
}

// routePath returns the matched route pattern, keeping label cardinality bounded.
func routePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" && path != "/" {
			return path
		}
	}
	return "unmatched"
}

func normalizeLabel(value string) string {
	if normalized := strings.ToLower(strings.TrimSpace(value)); normalized != "" {
		return normalized
	}
	return "unknown"
}

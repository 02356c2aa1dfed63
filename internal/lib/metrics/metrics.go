// Package metrics содержит prometheus-метрики сервиса и middleware для HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_reconciler_http_requests_total",
			Help: "Количество обработанных HTTP-запросов.",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "license_reconciler_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "code"},
	)

	webhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_reconciler_webhook_outcomes_total",
			Help: "Результаты обработки уведомлений платёжного шлюза.",
		},
		[]string{"outcome"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "license_reconciler_gateway_request_duration_seconds",
			Help:    "Длительность запросов к платёжному шлюзу.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "result"},
	)

	licenseStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_reconciler_license_status_changes_total",
			Help: "Переходы статуса лицензии, найденные фоновым пересчётом.",
		},
		[]string{"status"},
	)
)

// WebhookOutcome увеличивает счётчик результата обработки уведомления.
func WebhookOutcome(outcome string) {
	webhookOutcomes.WithLabelValues(outcome).Inc()
}

// GatewayRequest фиксирует длительность запроса к шлюзу.
func GatewayRequest(endpoint, result string, started time.Time) {
	gatewayRequestDuration.WithLabelValues(endpoint, result).Observe(time.Since(started).Seconds())
}

// LicenseStatusChanged увеличивает счётчик переходов в статус.
func LicenseStatusChanged(status string) {
	licenseStatusChanges.WithLabelValues(status).Inc()
}

// Middleware собирает количество и длительность HTTP-запросов по шаблону маршрута.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		code := strconv.Itoa(ww.Status())
		httpRequestsTotal.WithLabelValues(r.Method, path, code).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}

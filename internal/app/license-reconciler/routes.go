package licensereconciler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/license-reconciler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/metrics"
)

// Handlers обработчики маршрутов приложения.
type Handlers struct {
	Webhook       http.Handler
	LicenseCheck  http.Handler
	BindHWID      http.Handler
	PaymentStatus http.Handler
	Plans         http.Handler
	Health        http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
// Уведомления шлюза не лимитируются, их подлинность проверяет подпись.
func RegisterRoutes(r chi.Router, logger *slog.Logger, h Handlers, tokens middlewarectx.TokenParser, limiter *middlewarectx.RateLimiter) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhook/mercadopago", h.Webhook.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware(logger))

			// Открытые конечные точки
			r.Get("/plans", h.Plans.ServeHTTP)

			// Группа с JWT аутентификацией
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(tokens, logger))
				r.Get("/license/check", h.LicenseCheck.ServeHTTP)
				r.Post("/license/hwid", h.BindHWID.ServeHTTP)
				r.Get("/payments/{gateway_id}", h.PaymentStatus.ServeHTTP)
			})
		})
	})

	r.Get("/health", h.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

// Package licensereconciler собирает HTTP-приложение сверки платежей и лицензий.
package licensereconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/license-reconciler/internal/cache"
	"github.com/magabrotheeeer/license-reconciler/internal/config"
	"github.com/magabrotheeeer/license-reconciler/internal/gateway"
	"github.com/magabrotheeeer/license-reconciler/internal/http/handlers/health"
	"github.com/magabrotheeeer/license-reconciler/internal/http/handlers/license/check"
	"github.com/magabrotheeeer/license-reconciler/internal/http/handlers/license/hwid"
	"github.com/magabrotheeeer/license-reconciler/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/license-reconciler/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/license-reconciler/internal/http/handlers/plans"
	"github.com/magabrotheeeer/license-reconciler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/jwt"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/migrations"
	"github.com/magabrotheeeer/license-reconciler/internal/services/license"
	"github.com/magabrotheeeer/license-reconciler/internal/services/reconciler"
	"github.com/magabrotheeeer/license-reconciler/internal/services/resolver"
	"github.com/magabrotheeeer/license-reconciler/internal/services/webhook"
	"github.com/magabrotheeeer/license-reconciler/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-приложение.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New подключает хранилища, применяет миграции и собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "licensereconciler.New"

	if cfg.Gateway.AccessToken == "" {
		return nil, fmt.Errorf("%s: gateway access token is not set", op)
	}
	if cfg.JWTToken.SecretKey == "" {
		return nil, fmt.Errorf("%s: jwt secret key is not set", op)
	}
	if cfg.Gateway.WebhookSecret == "" {
		logger.Warn("webhook secret is not set, x-signature verification disabled")
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := repository.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gw := gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.AccessToken, cfg.Gateway.Timeout)
	durations := resolver.New(logger, db, gw, cfg.Plans())
	rec := reconciler.New(logger, ledger{db}, cacheRedis)
	processor := webhook.New(logger, gw, durations, rec)
	licenses := license.New(logger, db, db, cacheRedis, license.WithSnapshotTTL(cfg.RedisConnection.LicenseTTL))

	router := chi.NewRouter()
	if cfg.RateLimit.BehindProxy {
		router.Use(middleware.RealIP)
	}
	RegisterRoutes(router, logger, Handlers{
		Webhook:       paymentwebhook.New(logger, processor, cfg.Gateway.WebhookSecret),
		LicenseCheck:  check.New(logger, licenses),
		BindHWID:      hwid.New(logger, licenses),
		PaymentStatus: paymentstatus.New(logger, licenses),
		Plans:         plans.New(logger, cfg.Plans(), db),
		Health:        health.New(logger, map[string]health.Pinger{"postgres": db, "redis": cacheRedis}),
	},
		jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL),
		middlewarectx.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run обслуживает запросы до отмены ctx и затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.close()
	return err
}

func (a *App) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}

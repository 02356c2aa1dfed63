// Package sweeper периодически пересчитывает статусы лицензий и сообщает о переходах.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/license-reconciler/internal/lib/licensestatus"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/metrics"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

const defaultBatchSize = 500

// UserRepository хранилище пользователей.
type UserRepository interface {
	ListUsers(ctx context.Context, afterID, limit int) ([]*models.User, error)
	UpdateLicenseStatus(ctx context.Context, c models.LicenseStatusChange) (bool, error)
}

// Publisher публикует сообщения в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// LicenseCache кэш снимков лицензий.
type LicenseCache interface {
	InvalidateLicense(ctx context.Context, userID int) error
}

// StatusChanged сообщение о смене статуса лицензии.
type StatusChanged struct {
	UserID        int        `json:"user_id"`
	Email         string     `json:"email"`
	Previous      string     `json:"previous_status"`
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	DaysRemaining int        `json:"days_remaining"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Stats итог одного прохода.
type Stats struct {
	Scanned   int
	Changed   int
	Published int
}

var notifyStatuses = map[string]bool{
	models.LicenseWarning:  true,
	models.LicenseExpiring: true,
	models.LicenseCritical: true,
	models.LicenseExpired:  true,
}

// Service фоновый пересчёт статусов.
type Service struct {
	log       *slog.Logger
	users     UserRepository
	publisher Publisher
	cache     LicenseCache
	batchSize int
	now       func() time.Time
}

// New создаёт Service. publisher и cache могут быть nil.
func New(log *slog.Logger, users UserRepository, publisher Publisher, cache LicenseCache, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		log:       log,
		users:     users,
		publisher: publisher,
		cache:     cache,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run выполняет проход сразу и затем раз в interval, пока не отменён ctx.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("license sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	s.log.Info("starting license status sweep")
	stats, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("license sweep failed", sl.Err(err))
	}
	s.log.Info("license sweep finished",
		slog.Int("scanned", stats.Scanned),
		slog.Int("changed", stats.Changed),
		slog.Int("published", stats.Published),
	)
}

// Sweep проходит всех пользователей страницами и сохраняет изменившиеся статусы.
// Пользователи без срока в статусе pendente не трогаются: этот статус ставит проверка лицензии.
func (s *Service) Sweep(ctx context.Context) (Stats, error) {
	const op = "sweeper.Sweep"
	var stats Stats

	now := s.now()
	afterID := 0
	for {
		users, err := s.users.ListUsers(ctx, afterID, s.batchSize)
		if err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}
		if len(users) == 0 {
			return stats, nil
		}

		for _, u := range users {
			stats.Scanned++
			afterID = u.ID

			if u.Expiration == nil && u.LicenseStatus == models.LicensePending {
				continue
			}
			result := licensestatus.Classify(now, u.Expiration)
			if result.Status == u.LicenseStatus {
				continue
			}

			updated, err := s.users.UpdateLicenseStatus(ctx, models.LicenseStatusChange{
				UserID:     u.ID,
				Expiration: u.Expiration,
				From:       u.LicenseStatus,
				To:         result.Status,
			})
			if err != nil {
				s.log.Error("failed to update license status", sl.UserID(u.ID), sl.Err(err))
				continue
			}
			if !updated {
				// Лицензию изменили после чтения страницы, пересчёт на следующем проходе.
				s.log.Debug("license changed concurrently, skipped", sl.UserID(u.ID))
				continue
			}
			stats.Changed++
			metrics.LicenseStatusChanged(result.Status)
			s.invalidate(ctx, u.ID)

			if s.notify(ctx, u, result) {
				stats.Published++
			}
		}

		if len(users) < s.batchSize {
			return stats, nil
		}
	}
}

func (s *Service) notify(ctx context.Context, u *models.User, result licensestatus.Result) bool {
	if s.publisher == nil || !notifyStatuses[result.Status] {
		return false
	}
	msg := StatusChanged{
		UserID:        u.ID,
		Email:         u.Email,
		Previous:      u.LicenseStatus,
		Status:        result.Status,
		Message:       result.Message,
		DaysRemaining: result.DaysRemaining,
		ExpiresAt:     result.ExpiresAt,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyStatusChanged, msg); err != nil {
		s.log.Error("failed to publish status change", sl.UserID(u.ID), sl.Err(err))
		return false
	}
	return true
}

func (s *Service) invalidate(ctx context.Context, userID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLicense(ctx, userID); err != nil {
		s.log.Warn("failed to invalidate license cache", sl.UserID(userID), sl.Err(err))
	}
}

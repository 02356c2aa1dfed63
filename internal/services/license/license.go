// Package license отвечает на запросы клиента о лицензии: статус, привязка устройства, платежи.
package license

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/license-reconciler/internal/cache"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/licensestatus"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// DefaultSnapshotTTL время жизни снимка лицензии в кэше.
const DefaultSnapshotTTL = 5 * time.Minute

// UserRepository хранилище пользователей.
type UserRepository interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	UpdateLicenseStatus(ctx context.Context, c models.LicenseStatusChange) (bool, error)
	BindHWID(ctx context.Context, userID int, hwid string) error
}

// PaymentRepository хранилище платежей.
type PaymentRepository interface {
	GetPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error)
	HasPendingPayment(ctx context.Context, userID int) (bool, error)
}

// Cache кэш снимков лицензий.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	InvalidateLicense(ctx context.Context, userID int) error
}

// Snapshot то, что нужно для ответа о лицензии без обращения к базе.
// Статус не кэшируется готовым: он пересчитывается от текущего времени при каждом запросе.
type Snapshot struct {
	Email         string     `json:"email"`
	Expiration    *time.Time `json:"expiration,omitempty"`
	LicenseStatus string     `json:"license_status"`
	HasPending    bool       `json:"has_pending"`
}

// Check ответ на проверку лицензии.
type Check struct {
	licensestatus.Result
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

// Service сервис лицензий.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	payments PaymentRepository
	cache    Cache
	ttl      time.Duration
	now      func() time.Time
}

// Option настройка Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSnapshotTTL задаёт время жизни снимка в кэше.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New создаёт сервис лицензий. cache может быть nil.
func New(log *slog.Logger, users UserRepository, payments PaymentRepository, cache Cache, opts ...Option) *Service {
	s := &Service{
		log:      log,
		users:    users,
		payments: payments,
		cache:    cache,
		ttl:      DefaultSnapshotTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check классифицирует лицензию пользователя. Если сохранённый статус устарел, он обновляется.
func (s *Service) Check(ctx context.Context, userID int) (*Check, error) {
	const op = "license.Check"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := s.classify(snap)
	if result.Status != snap.LicenseStatus {
		updated, err := s.users.UpdateLicenseStatus(ctx, models.LicenseStatusChange{
			UserID:     userID,
			Expiration: snap.Expiration,
			From:       snap.LicenseStatus,
			To:         result.Status,
		})
		switch {
		case err != nil:
			log.Warn("failed to persist license status", sl.Err(err))
		case !updated:
			// Снимок устарел: пока он лежал в кэше, лицензию изменили.
			log.Info("license snapshot is stale, reloading", slog.String("status", snap.LicenseStatus))
			fresh, err := s.load(ctx, userID)
			if err != nil {
				log.Warn("failed to reload license", sl.Err(err))
				s.invalidate(ctx, userID)
				break
			}
			snap = fresh
			result = s.classify(snap)
			s.store(ctx, userID, snap)
		default:
			log.Info("license status changed",
				slog.String("from", snap.LicenseStatus),
				slog.String("to", result.Status),
			)
			snap.LicenseStatus = result.Status
			s.store(ctx, userID, snap)
		}
	}

	return &Check{
		Result: result,
		Valid:  result.Valid(),
		Email:  snap.Email,
	}, nil
}

// BindHWID привязывает устройство к пользователю.
func (s *Service) BindHWID(ctx context.Context, userID int, hwid string) error {
	const op = "license.BindHWID"

	hwid = strings.TrimSpace(hwid)
	if err := s.users.BindHWID(ctx, userID, hwid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("device bound", slog.String("op", op), sl.UserID(userID))
	return nil
}

// PaymentStatus возвращает платёж пользователя по идентификатору шлюза.
// Чужой платёж неотличим от отсутствующего.
func (s *Service) PaymentStatus(ctx context.Context, userID int, gatewayID string) (*models.Payment, error) {
	const op = "license.PaymentStatus"

	p, err := s.payments.GetPaymentByGatewayID(ctx, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentNotFound)
	}
	return p, nil
}

func (s *Service) classify(snap *Snapshot) licensestatus.Result {
	if snap.Expiration == nil && snap.HasPending {
		return licensestatus.Pending()
	}
	return licensestatus.Classify(s.now(), snap.Expiration)
}

func (s *Service) snapshot(ctx context.Context, userID int) (*Snapshot, error) {
	if s.cache != nil {
		var snap Snapshot
		found, err := s.cache.Get(ctx, cache.LicenseKey(userID), &snap)
		if err != nil {
			s.log.Warn("license cache read failed", sl.UserID(userID), sl.Err(err))
		} else if found {
			return &snap, nil
		}
	}

	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, userID, snap)
	return snap, nil
}

func (s *Service) load(ctx context.Context, userID int) (*Snapshot, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Email:         u.Email,
		Expiration:    u.Expiration,
		LicenseStatus: u.LicenseStatus,
	}
	if u.Expiration == nil {
		snap.HasPending, err = s.payments.HasPendingPayment(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Service) store(ctx context.Context, userID int, snap *Snapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.LicenseKey(userID), snap, s.ttl); err != nil {
		s.log.Warn("license cache write failed", sl.UserID(userID), sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, userID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLicense(ctx, userID); err != nil {
		s.log.Warn("license cache invalidate failed", sl.UserID(userID), sl.Err(err))
	}
}

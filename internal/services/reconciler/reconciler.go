// Package reconciler применяет подтверждённые платежи к сроку лицензии пользователя ровно один раз.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Day длительность одного дня лицензии.
const Day = 24 * time.Hour

// LedgerTx операции над платежами и пользователями внутри одной транзакции.
// Порядок блокировок: сначала платёж, затем пользователь.
type LedgerTx interface {
	LockPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error)
	LockUser(ctx context.Context, userID int) (*models.User, error)
	CreatePayment(ctx context.Context, payment models.Payment) (int, bool, error)
	UpdatePayment(ctx context.Context, payment models.Payment) error
	SaveUser(ctx context.Context, user models.User) error
}

// Ledger журнал платежей.
type Ledger interface {
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
	GetPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, gatewayID, status string) (int, bool, error)
}

// LicenseCache кэш снимков лицензий.
type LicenseCache interface {
	InvalidateLicense(ctx context.Context, userID int) error
}

// ApprovedPayment подтверждённый шлюзом платёж с уже определённым сроком.
type ApprovedPayment struct {
	GatewayID string
	UserID    int
	Amount    decimal.Decimal
	Days      int
	PlanLabel string
	ProductID *int
}

// Result итог применения платежа.
type Result struct {
	PaymentID          int
	UserID             int
	PreviousExpiration *time.Time
	Expiration         time.Time
	Stacked            bool
}

// Reconciler сверяет уведомления шлюза с журналом платежей.
type Reconciler struct {
	log    *slog.Logger
	ledger Ledger
	cache  LicenseCache
	now    func() time.Time
}

// Option настройка Reconciler.
type Option func(*Reconciler)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// New создаёт Reconciler. cache может быть nil.
func New(log *slog.Logger, ledger Ledger, cache LicenseCache, opts ...Option) *Reconciler {
	r := &Reconciler{
		log:    log,
		ledger: ledger,
		cache:  cache,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsCompleted сообщает, применён ли уже платёж. Проверка вне транзакции, только для раннего выхода.
func (r *Reconciler) IsCompleted(ctx context.Context, gatewayID string) (bool, error) {
	const op = "reconciler.IsCompleted"

	payment, err := r.ledger.GetPaymentByGatewayID(ctx, gatewayID)
	if errors.Is(err, models.ErrPaymentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return payment.Status == models.PaymentCompleted, nil
}

// ApplyApproved переводит платёж в completed и продлевает лицензию.
// Повторная доставка того же gateway_id возвращает models.ErrDuplicatePayment.
func (r *Reconciler) ApplyApproved(ctx context.Context, p ApprovedPayment) (*Result, error) {
	const op = "reconciler.ApplyApproved"
	log := r.log.With(slog.String("op", op), sl.GatewayID(p.GatewayID), sl.UserID(p.UserID))

	if p.Days <= 0 || p.Days > models.MaxLicenseDays {
		return nil, fmt.Errorf("%s: %d days: %w", op, p.Days, models.ErrResolutionFailure)
	}

	var res *Result
	err := r.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		existing, err := tx.LockPaymentByGatewayID(ctx, p.GatewayID)
		if err != nil && !errors.Is(err, models.ErrPaymentNotFound) {
			return err
		}
		if existing != nil {
			if existing.Status == models.PaymentCompleted {
				return models.ErrDuplicatePayment
			}
			if existing.UserID != p.UserID {
				return fmt.Errorf("payment recorded for user %d: %w", existing.UserID, models.ErrMalformedReference)
			}
		}

		user, err := tx.LockUser(ctx, p.UserID)
		if err != nil {
			return err
		}

		now := r.now().UTC()
		expiration, stacked := Extend(now, user.Expiration, p.Days)

		payment := models.Payment{
			UserID:    p.UserID,
			ProductID: p.ProductID,
			GatewayID: p.GatewayID,
			Amount:    p.Amount,
			Status:    models.PaymentCompleted,
			PlanLabel: p.PlanLabel,
			PaidAt:    &now,
		}

		if existing == nil {
			id, created, err := tx.CreatePayment(ctx, payment)
			if err != nil {
				return err
			}
			if !created {
				return models.ErrDuplicatePayment
			}
			payment.ID = id
		} else {
			payment.ID = existing.ID
			if payment.ProductID == nil {
				payment.ProductID = existing.ProductID
			}
			if payment.Amount.IsZero() {
				payment.Amount = existing.Amount
			}
			if err := tx.UpdatePayment(ctx, payment); err != nil {
				return err
			}
		}

		res = &Result{
			PaymentID:          payment.ID,
			UserID:             user.ID,
			PreviousExpiration: user.Expiration,
			Expiration:         expiration,
			Stacked:            stacked,
		}

		user.Expiration = &expiration
		user.LicenseStatus = models.LicenseActive
		return tx.SaveUser(ctx, *user)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.invalidate(ctx, p.UserID)
	log.Info("license extended",
		slog.Int("days", p.Days),
		slog.Time("expiration", res.Expiration),
		slog.Bool("stacked", res.Stacked),
	)
	return res, nil
}

// MirrorStatus отражает неподтверждённый статус шлюза в журнале.
// Возвращает статус журнала и признак того, что запись изменена.
// Завершённые платежи не понижаются, неизвестные gateway_id не создаются.
func (r *Reconciler) MirrorStatus(ctx context.Context, gatewayID, gatewayStatus string) (string, bool, error) {
	const op = "reconciler.MirrorStatus"

	status, ok := LedgerStatus(gatewayStatus)
	if !ok {
		return "", false, nil
	}
	userID, updated, err := r.ledger.UpdatePaymentStatus(ctx, gatewayID, status)
	if err != nil {
		return status, false, fmt.Errorf("%s: %w", op, err)
	}
	if updated {
		// Снимок лицензии хранит признак ожидающего платежа.
		r.invalidate(ctx, userID)
	}
	return status, updated, nil
}

func (r *Reconciler) invalidate(ctx context.Context, userID int) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateLicense(ctx, userID); err != nil {
		r.log.Warn("failed to invalidate license cache", sl.UserID(userID), sl.Err(err))
	}
}

// Extend считает новую дату окончания: действующая лицензия продлевается, истёкшая начинается заново.
// Дни прибавляются календарно в UTC, поэтому большие значения не переполняют time.Duration.
func Extend(now time.Time, current *time.Time, days int) (time.Time, bool) {
	if current != nil && current.After(now) {
		return current.UTC().AddDate(0, 0, days), true
	}
	return now.UTC().AddDate(0, 0, days), false
}

// Package webhook обрабатывает уведомления MercadoPago: получает платёж, определяет пользователя и срок,
// передаёт подтверждённый платёж в сверку.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/license-reconciler/internal/gateway"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/metrics"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/reference"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
	"github.com/magabrotheeeer/license-reconciler/internal/services/reconciler"
	"github.com/magabrotheeeer/license-reconciler/internal/services/resolver"
)

// TypePayment единственный тип уведомления, который обрабатывается.
const TypePayment = "payment"

// Результаты обработки уведомления.
const (
	ResultIgnored   = "ignored"
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultMirrored  = "mirrored"
	ResultRejected  = "rejected"
	ResultRetry     = "retry"
	ResultFailed    = "failed"
)

// Notification уведомление шлюза.
type Notification struct {
	Type   string
	DataID string
}

// Outcome итог обработки уведомления.
type Outcome struct {
	Result        string
	Message       string
	GatewayStatus string
	UserID        int
	Expiration    *time.Time
}

// PaymentFetcher получает платёж у шлюза.
type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentDetails, error)
}

// DurationResolver определяет срок лицензии по платежу.
type DurationResolver interface {
	Resolve(ctx context.Context, productToken, preferenceID string) (*resolver.Resolution, error)
}

// PaymentReconciler применяет платёж к лицензии.
type PaymentReconciler interface {
	IsCompleted(ctx context.Context, gatewayID string) (bool, error)
	ApplyApproved(ctx context.Context, p reconciler.ApprovedPayment) (*reconciler.Result, error)
	MirrorStatus(ctx context.Context, gatewayID, gatewayStatus string) (string, bool, error)
}

// Processor связывает шлюз, разбор ссылки, определение срока и сверку.
type Processor struct {
	log        *slog.Logger
	payments   PaymentFetcher
	resolver   DurationResolver
	reconciler PaymentReconciler
}

// New создаёт Processor.
func New(log *slog.Logger, payments PaymentFetcher, resolver DurationResolver, reconciler PaymentReconciler) *Processor {
	return &Processor{
		log:        log,
		payments:   payments,
		resolver:   resolver,
		reconciler: reconciler,
	}
}

// Process обрабатывает одно уведомление.
// Повтор и неподтверждённый статус не считаются ошибкой. Ошибки разворачиваются в sentinel-ошибки models.
func (p *Processor) Process(ctx context.Context, n Notification) (*Outcome, error) {
	const op = "webhook.Process"

	outcome, err := p.process(ctx, n)
	metrics.WebhookOutcome(outcomeLabel(outcome, err))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return outcome, nil
}

func (p *Processor) process(ctx context.Context, n Notification) (*Outcome, error) {
	log := p.log.With(
		slog.String("op", "webhook.Process"),
		slog.String("type", n.Type),
		sl.GatewayID(n.DataID),
	)

	if !strings.EqualFold(n.Type, TypePayment) {
		log.Debug("notification ignored")
		return &Outcome{Result: ResultIgnored, Message: "notification type ignored"}, nil
	}
	gatewayID := strings.TrimSpace(n.DataID)
	if gatewayID == "" {
		log.Warn("notification without payment id")
		return nil, models.ErrInvalidNotification
	}

	done, err := p.reconciler.IsCompleted(ctx, gatewayID)
	if err != nil {
		log.Error("failed to check ledger", sl.Err(err))
		return nil, err
	}
	if done {
		log.Info("payment already processed")
		return &Outcome{Result: ResultDuplicate, Message: "payment already processed"}, nil
	}

	details, err := p.payments.FetchPayment(ctx, gatewayID)
	if err != nil {
		if errors.Is(err, models.ErrTransientGateway) {
			log.Warn("gateway unavailable, notification will be retried", sl.Err(err))
		} else {
			log.Error("gateway rejected payment lookup", sl.Err(err))
		}
		return nil, err
	}
	log = log.With(slog.String("gateway_status", details.Status))

	if !details.Approved() {
		status, updated, err := p.reconciler.MirrorStatus(ctx, gatewayID, details.Status)
		if err != nil {
			log.Error("failed to mirror payment status", sl.Err(err))
			return nil, err
		}
		log.Info("payment not approved", slog.String("ledger_status", status), slog.Bool("updated", updated))
		return &Outcome{
			Result:        ResultMirrored,
			Message:       "payment status: " + details.Status,
			GatewayStatus: details.Status,
		}, nil
	}

	ref, err := reference.Parse(details.ExternalReference)
	if err != nil {
		log.Error("bad external reference", slog.String("external_reference", details.ExternalReference), sl.Err(err))
		return nil, err
	}
	log = log.With(sl.UserID(ref.UserID))

	res, err := p.resolver.Resolve(ctx, ref.ProductToken, details.PreferenceID)
	if err != nil {
		log.Error("failed to resolve license duration", sl.Err(err))
		return nil, err
	}

	applied, err := p.reconciler.ApplyApproved(ctx, reconciler.ApprovedPayment{
		GatewayID: gatewayID,
		UserID:    ref.UserID,
		Amount:    details.Amount,
		Days:      res.Days,
		PlanLabel: res.PlanLabel,
		ProductID: res.ProductID,
	})
	if errors.Is(err, models.ErrDuplicatePayment) {
		log.Info("payment already processed")
		return &Outcome{Result: ResultDuplicate, Message: "payment already processed", UserID: ref.UserID}, nil
	}
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("user from reference not found", sl.Err(err))
		} else {
			log.Error("failed to apply payment", sl.Err(err))
		}
		return nil, err
	}

	log.Info("payment applied",
		slog.Int("days", res.Days),
		slog.String("source", res.Source),
		slog.Time("expiration", applied.Expiration),
	)
	return &Outcome{
		Result:        ResultApplied,
		Message:       "payment processed",
		GatewayStatus: details.Status,
		UserID:        ref.UserID,
		Expiration:    &applied.Expiration,
	}, nil
}

// Rejected сообщает, что уведомление нельзя обработать и повтор не поможет.
func Rejected(err error) bool {
	for _, target := range []error{
		models.ErrInvalidNotification,
		models.ErrPermanentGateway,
		models.ErrMalformedReference,
		models.ErrUserNotFound,
		models.ErrProductNotFound,
		models.ErrResolutionFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func outcomeLabel(o *Outcome, err error) string {
	switch {
	case err == nil && o != nil:
		return o.Result
	case errors.Is(err, models.ErrTransientGateway):
		return ResultRetry
	case Rejected(err):
		return ResultRejected
	default:
		return ResultFailed
	}
}

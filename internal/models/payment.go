package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы платежа в локальном журнале.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment запись журнала платежей. GatewayID уникален и служит ключом идемпотентности.
type Payment struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	ProductID *int            `json:"product_id,omitempty"` // nil для legacy-планов
	GatewayID string          `json:"gateway_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	PlanLabel string          `json:"plan_label"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

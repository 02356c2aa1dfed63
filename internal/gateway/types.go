package gateway

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Статусы платежа MercadoPago.
const (
	StatusApproved    = "approved"
	StatusPending     = "pending"
	StatusInProcess   = "in_process"
	StatusAuthorized  = "authorized"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

// PaymentDetails платёж в том виде, в каком его видит шлюз.
type PaymentDetails struct {
	ID                string
	Status            string
	StatusDetail      string
	Amount            decimal.Decimal
	ExternalReference string
	PreferenceID      string
}

// Approved сообщает, подтверждён ли платёж шлюзом.
func (p PaymentDetails) Approved() bool {
	return p.Status == StatusApproved
}

type paymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	ExternalReference string          `json:"external_reference"`
	PreferenceID      string          `json:"preference_id"`
}

type preferenceResponse struct {
	ID       string                     `json:"id"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

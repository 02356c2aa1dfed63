package reconciler

import (
	"github.com/magabrotheeeer/license-reconciler/internal/gateway"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

var ledgerStatuses = map[string]string{
	gateway.StatusPending:     models.PaymentPending,
	gateway.StatusInProcess:   models.PaymentPending,
	gateway.StatusAuthorized:  models.PaymentPending,
	gateway.StatusInMediation: models.PaymentPending,
	gateway.StatusRejected:    models.PaymentFailed,
	gateway.StatusCancelled:   models.PaymentFailed,
	gateway.StatusRefunded:    models.PaymentFailed,
	gateway.StatusChargedBack: models.PaymentFailed,
}

// LedgerStatus переводит статус шлюза в статус журнала.
// approved сюда не относится: он обрабатывается через ApplyApproved.
func LedgerStatus(gatewayStatus string) (string, bool) {
	s, ok := ledgerStatuses[gatewayStatus]
	return s, ok
}

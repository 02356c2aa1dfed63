package licensereconciler

import (
	"context"

	"github.com/magabrotheeeer/license-reconciler/internal/services/reconciler"
	"github.com/magabrotheeeer/license-reconciler/internal/storage/repository"
)

// ledger отдаёт транзакцию репозитория сервису сверки через его интерфейс.
type ledger struct {
	*repository.Storage
}

func (l ledger) WithinTx(ctx context.Context, fn func(tx reconciler.LedgerTx) error) error {
	return l.Storage.WithinTx(ctx, func(tx *repository.Tx) error {
		return fn(tx)
	})
}

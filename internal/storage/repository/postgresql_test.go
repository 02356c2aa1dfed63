package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

func TestStorage_Users(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	exp := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	id := factory.CreateUser(t, "user@example.com", &exp, models.LicenseActive)

	u, err := storage.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", u.Email)
	require.NotNil(t, u.Expiration)
	assert.True(t, exp.Equal(*u.Expiration))
	assert.Nil(t, u.HWID)

	newExp := exp.Add(30 * 24 * time.Hour)
	u.Expiration = &newExp
	u.LicenseStatus = models.LicenseWarning
	require.NoError(t, storage.SaveUser(ctx, *u))

	u, err = storage.GetUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, newExp.Equal(*u.Expiration))
	assert.Equal(t, models.LicenseWarning, u.LicenseStatus)

	updated, err := storage.UpdateLicenseStatus(ctx, models.LicenseStatusChange{
		UserID: id, Expiration: &newExp, From: models.LicenseWarning, To: models.LicenseExpired,
	})
	require.NoError(t, err)
	assert.True(t, updated)
	u, err = storage.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseExpired, u.LicenseStatus)

	_, err = storage.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.ErrorIs(t, storage.SaveUser(ctx, models.User{ID: 9999, LicenseStatus: models.LicenseNone}), models.ErrUserNotFound)
	updated, err = storage.UpdateLicenseStatus(ctx, models.LicenseStatusChange{UserID: 9999, From: models.LicenseNone, To: models.LicenseExpired})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestStorage_UpdateLicenseStatusStaleSnapshot(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	oldExp := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	freshExp := oldExp.Add(30 * 24 * time.Hour)

	tests := []struct {
		name       string
		stored     *time.Time
		status     string
		change     func(id int) models.LicenseStatusChange
		wantUpdate bool
		wantStatus string
	}{
		{
			name:   "snapshot still current",
			stored: &oldExp,
			status: models.LicenseActive,
			change: func(id int) models.LicenseStatusChange {
				return models.LicenseStatusChange{UserID: id, Expiration: &oldExp, From: models.LicenseActive, To: models.LicenseWarning}
			},
			wantUpdate: true,
			wantStatus: models.LicenseWarning,
		},
		{
			name:   "payment committed after read keeps ativa",
			stored: &freshExp,
			status: models.LicenseActive,
			change: func(id int) models.LicenseStatusChange {
				return models.LicenseStatusChange{UserID: id, Expiration: &oldExp, From: models.LicenseActive, To: models.LicenseExpired}
			},
			wantStatus: models.LicenseActive,
		},
		{
			name:   "status moved after read",
			stored: &oldExp,
			status: models.LicenseActive,
			change: func(id int) models.LicenseStatusChange {
				return models.LicenseStatusChange{UserID: id, Expiration: &oldExp, From: models.LicenseExpired, To: models.LicenseCritical}
			},
			wantStatus: models.LicenseActive,
		},
		{
			name:   "no license matches null expiration",
			status: models.LicenseNone,
			change: func(id int) models.LicenseStatusChange {
				return models.LicenseStatusChange{UserID: id, From: models.LicenseNone, To: models.LicensePending}
			},
			wantUpdate: true,
			wantStatus: models.LicensePending,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := factory.CreateUser(t, fmt.Sprintf("stale%d@example.com", i), tt.stored, tt.status)

			updated, err := storage.UpdateLicenseStatus(ctx, tt.change(id))
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdate, updated)

			u, err := storage.GetUser(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, u.LicenseStatus)
		})
	}
}

func TestStorage_ListUsers(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	var ids []int
	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		ids = append(ids, factory.CreateUser(t, email, nil, models.LicenseNone))
	}

	page, err := storage.ListUsers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = storage.ListUsers(ctx, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = storage.ListUsers(ctx, ids[2], 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStorage_BindHWID(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	id := factory.CreateUser(t, "hw@example.com", nil, models.LicenseNone)

	require.NoError(t, storage.BindHWID(ctx, id, "HWID-1"))
	require.NoError(t, storage.BindHWID(ctx, id, "HWID-1"))
	assert.ErrorIs(t, storage.BindHWID(ctx, id, "HWID-2"), models.ErrHWIDMismatch)
	assert.ErrorIs(t, storage.BindHWID(ctx, 9999, "HWID-1"), models.ErrUserNotFound)

	u, err := storage.GetUser(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u.HWID)
	assert.Equal(t, "HWID-1", *u.HWID)
}

func TestStorage_Products(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	quarterly := factory.CreateProduct(t, "Plano Trimestral", "199.90", 90, true)
	factory.CreateProduct(t, "Plano Mensal", "79.90", 30, true)
	factory.CreateProduct(t, "Plano Antigo", "9.90", 7, false)

	p, err := storage.GetProduct(ctx, quarterly)
	require.NoError(t, err)
	assert.Equal(t, "Plano Trimestral", p.Name)
	assert.Equal(t, 90, p.DurationDays)
	assert.True(t, decimal.RequireFromString("199.90").Equal(p.Price))

	_, err = storage.GetProduct(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	active, err := storage.ListActiveProducts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Plano Mensal", active[0].Name)
	assert.Equal(t, "Plano Trimestral", active[1].Name)
}

func TestStorage_Payments(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userID := factory.CreateUser(t, "pay@example.com", nil, models.LicenseNone)
	productID := factory.CreateProduct(t, "Plano Mensal", "79.90", 30, true)
	paidAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	payment := models.Payment{
		UserID:    userID,
		ProductID: &productID,
		GatewayID: "mp-1",
		Amount:    decimal.RequireFromString("79.90"),
		Status:    models.PaymentCompleted,
		PlanLabel: "Plano Mensal",
		PaidAt:    &paidAt,
	}

	id, created, err := storage.CreatePayment(ctx, payment)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Positive(t, id)

	_, created, err = storage.CreatePayment(ctx, payment)
	require.NoError(t, err)
	assert.False(t, created, "gateway_id must be unique")

	got, err := storage.GetPaymentByGatewayID(ctx, "mp-1")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, &productID, got.ProductID)
	assert.True(t, payment.Amount.Equal(got.Amount))
	assert.Equal(t, models.PaymentCompleted, got.Status)
	assert.True(t, paidAt.Equal(*got.PaidAt))

	_, err = storage.GetPaymentByGatewayID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)

	_, updated, err := storage.UpdatePaymentStatus(ctx, "mp-1", models.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, updated, "completed payment must not be downgraded")

	factory.CreatePayment(t, userID, "mp-2", models.PaymentPending)
	pending, err := storage.HasPendingPayment(ctx, userID)
	require.NoError(t, err)
	assert.True(t, pending)

	owner, updated, err := storage.UpdatePaymentStatus(ctx, "mp-2", models.PaymentFailed)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, userID, owner)

	pending, err = storage.HasPendingPayment(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending)

	_, updated, err = storage.UpdatePaymentStatus(ctx, "missing", models.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, updated)

	assert.ErrorIs(t, storage.UpdatePayment(ctx, models.Payment{GatewayID: "missing", Status: models.PaymentPending}), models.ErrPaymentNotFound)
}

func TestStorage_WithinTx(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userID := factory.CreateUser(t, "tx@example.com", nil, models.LicenseNone)

	t.Run("rollback on error", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := storage.WithinTx(ctx, func(tx *Tx) error {
			_, _, err := tx.CreatePayment(ctx, models.Payment{
				UserID: userID, GatewayID: "mp-rollback", Status: models.PaymentCompleted,
			})
			require.NoError(t, err)
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		_, err = storage.GetPaymentByGatewayID(ctx, "mp-rollback")
		assert.ErrorIs(t, err, models.ErrPaymentNotFound)
	})

	t.Run("commit locks and saves", func(t *testing.T) {
		factory.CreatePayment(t, userID, "mp-tx", models.PaymentPending)
		exp := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

		err := storage.WithinTx(ctx, func(tx *Tx) error {
			p, err := tx.LockPaymentByGatewayID(ctx, "mp-tx")
			if err != nil {
				return err
			}
			u, err := tx.LockUser(ctx, userID)
			if err != nil {
				return err
			}
			p.Status = models.PaymentCompleted
			if err := tx.UpdatePayment(ctx, *p); err != nil {
				return err
			}
			u.Expiration = &exp
			u.LicenseStatus = models.LicenseActive
			return tx.SaveUser(ctx, *u)
		})
		require.NoError(t, err)

		p, err := storage.GetPaymentByGatewayID(ctx, "mp-tx")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, p.Status)

		u, err := storage.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exp.Equal(*u.Expiration))
		assert.Equal(t, models.LicenseActive, u.LicenseStatus)
	})

	t.Run("missing rows", func(t *testing.T) {
		err := storage.WithinTx(ctx, func(tx *Tx) error {
			_, err := tx.LockPaymentByGatewayID(ctx, "nope")
			assert.ErrorIs(t, err, models.ErrPaymentNotFound)
			_, err = tx.LockUser(ctx, 9999)
			assert.ErrorIs(t, err, models.ErrUserNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("concurrent inserts of one gateway id", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		createdCount := 0
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := storage.WithinTx(ctx, func(tx *Tx) error {
					_, created, err := tx.CreatePayment(ctx, models.Payment{
						UserID: userID, GatewayID: "mp-concurrent", Status: models.PaymentCompleted,
					})
					if err != nil {
						return err
					}
					if created {
						mu.Lock()
						createdCount++
						mu.Unlock()
					}
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, createdCount)
	})
}

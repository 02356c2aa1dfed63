package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/license-reconciler/internal/migrations"
)

// TestDataFactory заполняет базу тестовыми данными.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя
func (f *TestDataFactory) CreateUser(t *testing.T, email string, expiration *time.Time, status string) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO users (email, expiration, license_status)
		VALUES ($1, $2, $3) RETURNING id`, email, expiration, status).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateProduct создает продукт каталога
func (f *TestDataFactory) CreateProduct(t *testing.T, name string, price string, days int, active bool) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO products (name, price, duration_days, is_active)
		VALUES ($1, $2, $3, $4) RETURNING id`, name, decimal.RequireFromString(price), days, active).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePayment создает платёж в журнале
func (f *TestDataFactory) CreatePayment(t *testing.T, userID int, gatewayID, status string) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO payments (user_id, gateway_id, amount, status, plan_label)
		VALUES ($1, $2, 79.90, $3, 'mensal') RETURNING id`, userID, gatewayID, status).Scan(&id)
	require.NoError(t, err)
	return id
}

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

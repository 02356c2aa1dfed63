package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

const paymentColumns = `id, user_id, product_id, gateway_id, amount, status, plan_label, paid_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (*models.Payment, error) {
	var (
		p         models.Payment
		productID sql.NullInt64
		paidAt    sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.UserID, &productID, &p.GatewayID, &p.Amount,
		&p.Status, &p.PlanLabel, &paidAt); err != nil {
		return nil, err
	}
	if productID.Valid {
		id := int(productID.Int64)
		p.ProductID = &id
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		p.PaidAt = &t
	}
	return &p, nil
}

func getPayment(ctx context.Context, q querier, query, gatewayID string) (*models.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx, query, gatewayID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPaymentNotFound
	}
	return p, err
}

// createPayment вставляет платёж. false, если gateway_id уже занят.
func createPayment(ctx context.Context, q querier, p models.Payment) (int, bool, error) {
	var id int
	err := q.QueryRowContext(ctx, `INSERT INTO payments
		(user_id, product_id, gateway_id, amount, status, plan_label, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (gateway_id) DO NOTHING
		RETURNING id`,
		p.UserID, p.ProductID, p.GatewayID, p.Amount, p.Status, p.PlanLabel, p.PaidAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func updatePayment(ctx context.Context, q querier, p models.Payment) error {
	res, err := q.ExecContext(ctx, `UPDATE payments
		SET product_id = $2, amount = $3, status = $4, plan_label = $5, paid_at = $6, updated_at = NOW()
		WHERE gateway_id = $1`,
		p.GatewayID, p.ProductID, p.Amount, p.Status, p.PlanLabel, p.PaidAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrPaymentNotFound
	}
	return nil
}

// GetPaymentByGatewayID возвращает платёж по идентификатору шлюза.
func (s *Storage) GetPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error) {
	const op = "storage.GetPaymentByGatewayID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	p, err := getPayment(ctx, s.DB, `SELECT `+paymentColumns+` FROM payments WHERE gateway_id = $1`, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// CreatePayment сохраняет платёж. Возвращает id и false, если gateway_id уже есть в журнале.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int, bool, error) {
	const op = "storage.CreatePayment"
	if err := checkCtx(ctx, op); err != nil {
		return 0, false, err
	}

	id, created, err := createPayment(ctx, s.DB, p)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return id, created, nil
}

// UpdatePayment обновляет платёж по gateway_id.
func (s *Storage) UpdatePayment(ctx context.Context, p models.Payment) error {
	const op = "storage.UpdatePayment"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	if err := updatePayment(ctx, s.DB, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePaymentStatus меняет статус незавершённого платежа и возвращает владельца платежа.
// Завершённые платежи и отсутствующие gateway_id не трогает, в этих случаях возвращает false.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, gatewayID, status string) (int, bool, error) {
	const op = "storage.UpdatePaymentStatus"
	if err := checkCtx(ctx, op); err != nil {
		return 0, false, err
	}

	var userID int
	err := s.DB.QueryRowContext(ctx, `UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE gateway_id = $1 AND status <> 'completed'
		RETURNING user_id`, gatewayID, status).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return userID, true, nil
}

// HasPendingPayment сообщает, есть ли у пользователя платёж в ожидании.
func (s *Storage) HasPendingPayment(ctx context.Context, userID int) (bool, error) {
	const op = "storage.HasPendingPayment"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM payments WHERE user_id = $1 AND status = 'pending'
	)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// LockPaymentByGatewayID блокирует строку платежа до конца транзакции.
func (t *Tx) LockPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error) {
	const op = "storage.LockPaymentByGatewayID"

	p, err := getPayment(ctx, t.tx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_id = $1 FOR UPDATE`, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// CreatePayment вставляет платёж в транзакции. Проигранная гонка за gateway_id возвращает false.
func (t *Tx) CreatePayment(ctx context.Context, p models.Payment) (int, bool, error) {
	const op = "storage.Tx.CreatePayment"

	id, created, err := createPayment(ctx, t.tx, p)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return id, created, nil
}

// UpdatePayment обновляет платёж в транзакции.
func (t *Tx) UpdatePayment(ctx context.Context, p models.Payment) error {
	const op = "storage.Tx.UpdatePayment"

	if err := updatePayment(ctx, t.tx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

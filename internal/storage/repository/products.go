package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// GetProduct возвращает продукт каталога по ID.
func (s *Storage) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	const op = "storage.GetProduct"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var p models.Product
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, price, duration_days, is_active
		FROM products
		WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ListActiveProducts возвращает активные продукты каталога.
func (s *Storage) ListActiveProducts(ctx context.Context) ([]*models.Product, error) {
	const op = "storage.ListActiveProducts"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, price, duration_days, is_active
		FROM products
		WHERE is_active
		ORDER BY duration_days, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

const userColumns = `id, email, expiration, license_status, hwid`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		u          models.User
		expiration sql.NullTime
		hwid       sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &expiration, &u.LicenseStatus, &hwid); err != nil {
		return nil, err
	}
	if expiration.Valid {
		t := expiration.Time.UTC()
		u.Expiration = &t
	}
	if hwid.Valid {
		u.HWID = &hwid.String
	}
	return &u, nil
}

func getUser(ctx context.Context, q querier, query string, id int) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	return u, err
}

func saveUser(ctx context.Context, q querier, u models.User) error {
	res, err := q.ExecContext(ctx, `UPDATE users
		SET expiration = $2, license_status = $3, hwid = $4, updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.Expiration, u.LicenseStatus, u.HWID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id int) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := getUser(ctx, s.DB, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SaveUser сохраняет срок, статус лицензии и привязку устройства.
func (s *Storage) SaveUser(ctx context.Context, u models.User) error {
	const op = "storage.SaveUser"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	if err := saveUser(ctx, s.DB, u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateLicenseStatus сохраняет пересчитанный статус лицензии.
// Строка меняется, только если статус и окончание лицензии не изменились с момента чтения.
// Иначе возвращает false: статус уже переписан более свежей записью.
func (s *Storage) UpdateLicenseStatus(ctx context.Context, c models.LicenseStatusChange) (bool, error) {
	const op = "storage.UpdateLicenseStatus"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users
		SET license_status = $2, updated_at = NOW()
		WHERE id = $1 AND license_status = $3 AND expiration IS NOT DISTINCT FROM $4`,
		c.UserID, c.To, c.From, c.Expiration)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// ListUsers возвращает пользователей с id больше afterID, упорядоченных по id.
func (s *Storage) ListUsers(ctx context.Context, afterID, limit int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+`
		FROM users
		WHERE id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// BindHWID привязывает устройство к пользователю, если привязки ещё нет.
// Повторная привязка того же устройства не ошибка, другое устройство даёт models.ErrHWIDMismatch.
func (s *Storage) BindHWID(ctx context.Context, userID int, hwid string) error {
	const op = "storage.BindHWID"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	var bound sql.NullString
	err := s.DB.QueryRowContext(ctx, `UPDATE users
		SET hwid = COALESCE(hwid, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING hwid`, userID, hwid).Scan(&bound)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if bound.String != hwid {
		return fmt.Errorf("%s: %w", op, models.ErrHWIDMismatch)
	}
	return nil
}

// LockUser блокирует строку пользователя до конца транзакции.
func (t *Tx) LockUser(ctx context.Context, userID int) (*models.User, error) {
	const op = "storage.LockUser"

	u, err := getUser(ctx, t.tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SaveUser сохраняет пользователя в транзакции.
func (t *Tx) SaveUser(ctx context.Context, u models.User) error {
	const op = "storage.Tx.SaveUser"

	if err := saveUser(ctx, t.tx, u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

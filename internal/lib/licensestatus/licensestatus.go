// Package licensestatus вычисляет статус лицензии по текущему времени и дате окончания.
// Функция Classify чистая: не ходит в хранилище и не меняет состояние.
package licensestatus

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

const day = 24 * time.Hour

// Пороги оставшегося времени, включительно.
const (
	CriticalWithin = 1 * day
	ExpiringWithin = 3 * day
	WarningWithin  = 7 * day
)

// Result описывает состояние лицензии для пользователя.
type Result struct {
	Status         string     `json:"license_status"`
	Message        string     `json:"message"`
	DaysRemaining  int        `json:"days_remaining"`
	HoursRemaining int        `json:"hours_remaining"`
	ExpiredDays    int        `json:"expired_days,omitempty"`
	CanDownload    bool       `json:"can_download"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// Valid сообщает, действует ли лицензия сейчас.
func (r Result) Valid() bool {
	return r.CanDownload
}

// Classify возвращает статус лицензии на момент now.
func Classify(now time.Time, expiration *time.Time) Result {
	if expiration == nil {
		return Result{
			Status:  models.LicenseNone,
			Message: "Você não possui uma licença ativa",
		}
	}

	exp := *expiration
	if !exp.After(now) {
		expiredDays := int(now.Sub(exp) / day)
		return Result{
			Status:      models.LicenseExpired,
			Message:     fmt.Sprintf("Sua licença expirou há %d dias", expiredDays),
			ExpiredDays: expiredDays,
			ExpiresAt:   &exp,
		}
	}

	remaining := exp.Sub(now)
	res := Result{
		DaysRemaining:  int(remaining / day),
		HoursRemaining: int(remaining % day / time.Hour),
		CanDownload:    true,
		ExpiresAt:      &exp,
	}

	switch {
	case remaining <= CriticalWithin:
		res.Status = models.LicenseCritical
		if res.DaysRemaining == 0 {
			res.Message = fmt.Sprintf("Sua licença expira em %d horas", res.HoursRemaining)
		} else {
			res.Message = fmt.Sprintf("Sua licença expira em %d dia e %d horas", res.DaysRemaining, res.HoursRemaining)
		}
	case remaining <= ExpiringWithin:
		res.Status = models.LicenseExpiring
		res.Message = fmt.Sprintf("Sua licença expira em %d dias", res.DaysRemaining)
	case remaining <= WarningWithin:
		res.Status = models.LicenseWarning
		res.Message = fmt.Sprintf("Sua licença expira em %d dias", res.DaysRemaining)
	default:
		res.Status = models.LicenseActive
		res.Message = fmt.Sprintf("Licença ativa por mais %d dias", res.DaysRemaining)
	}
	return res
}

// Pending возвращает результат для пользователя без лицензии, у которого есть неподтверждённый платёж.
func Pending() Result {
	return Result{
		Status:  models.LicensePending,
		Message: "Aguardando confirmação do pagamento",
	}
}

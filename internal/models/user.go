// Package models содержит доменные структуры сервиса лицензий: пользователя,
// продукт каталога, платёж и ошибки, общие для всех слоёв.
package models

import "time"

// Статусы лицензии, которые видит пользователь.
const (
	LicenseNone     = "sem_licenca"
	LicensePending  = "pendente"
	LicenseActive   = "ativa"
	LicenseExpiring = "expirando"
	LicenseWarning  = "aviso"
	LicenseCritical = "critico"
	LicenseExpired  = "expirada"
)

// User представляет покупателя лицензии.
type User struct {
	ID            int        // Идентификатор пользователя
	Email         string     // Электронная почта
	Expiration    *time.Time // Окончание лицензии, nil если лицензии не было
	LicenseStatus string     // Последний сохранённый статус лицензии
	HWID          *string    // Привязанное устройство
}

// LicenseStatusChange пересчитанный статус и снимок пользователя, от которого он посчитан.
// Изменение применяется, только если снимок всё ещё совпадает с базой.
type LicenseStatusChange struct {
	UserID     int
	Expiration *time.Time
	From       string
	To         string
}

package models

import "github.com/shopspring/decimal"

// Product описывает позицию каталога. Для сервиса сверки только для чтения.
type Product struct {
	ID           int
	Name         string
	Price        decimal.Decimal
	DurationDays int
	IsActive     bool
}

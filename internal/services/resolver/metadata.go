package resolver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Ключи metadata, которые checkout записывает в preference.
const (
	MetadataDays      = "days"
	MetadataPlanID    = "plan_id"
	MetadataProductID = "product_id"
)

var errNoDays = errors.New("metadata has no positive days")

// PreferenceMetadata типизированные metadata checkout-preference.
type PreferenceMetadata struct {
	Days      int
	PlanLabel string
	ProductID *int
}

// ParseMetadata проверяет metadata preference и приводит её к типам.
// days обязателен и должен быть положительным целым не больше models.MaxLicenseDays. product_id учитывается, только если это положительное число.
func ParseMetadata(raw map[string]string, fallbackLabel string) (PreferenceMetadata, error) {
	const op = "resolver.ParseMetadata"

	days, err := parsePositiveInt(raw[MetadataDays])
	if err != nil {
		return PreferenceMetadata{}, fmt.Errorf("%s: %w: %v", op, errNoDays, err)
	}
	if days > models.MaxLicenseDays {
		return PreferenceMetadata{}, fmt.Errorf("%s: %w: %d exceeds %d", op, errNoDays, days, models.MaxLicenseDays)
	}

	meta := PreferenceMetadata{
		Days:      days,
		PlanLabel: strings.TrimSpace(raw[MetadataPlanID]),
	}
	if meta.PlanLabel == "" {
		meta.PlanLabel = fallbackLabel
	}
	if id, err := parsePositiveInt(raw[MetadataProductID]); err == nil {
		meta.ProductID = &id
	}
	return meta, nil
}

// parsePositiveInt принимает "30" и "30.0", но не "30.5", "0" или "-1".
func parsePositiveInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		d, decErr := decimal.NewFromString(s)
		if decErr != nil || !d.IsInteger() || !d.BigInt().IsInt64() {
			return 0, fmt.Errorf("%q is not an integer", s)
		}
		n = int(d.IntPart())
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

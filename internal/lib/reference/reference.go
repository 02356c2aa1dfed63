// Package reference разбирает external_reference, который проставляется
// при создании checkout и возвращается шлюзом в уведомлении о платеже.
//
// Формат: user_<id>_product_<productIdOrPlanLabel>.
package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

const (
	userPrefix   = "user_"
	productInfix = "_product_"
)

// Reference разобранная ссылка на пользователя и продукт (или legacy-план).
type Reference struct {
	UserID       int
	ProductToken string
}

// Parse строго разбирает external_reference. Любое отклонение от формата
// возвращает ошибку, обёрнутую вокруг models.ErrMalformedReference.
func Parse(externalReference string) (Reference, error) {
	const op = "reference.Parse"

	rest, ok := strings.CutPrefix(externalReference, userPrefix)
	if !ok {
		return Reference{}, fmt.Errorf("%s: missing %q prefix: %w", op, userPrefix, models.ErrMalformedReference)
	}
	rawID, token, ok := strings.Cut(rest, productInfix)
	if !ok {
		return Reference{}, fmt.Errorf("%s: missing %q segment: %w", op, productInfix, models.ErrMalformedReference)
	}
	if !isDigits(rawID) {
		return Reference{}, fmt.Errorf("%s: user id %q is not numeric: %w", op, rawID, models.ErrMalformedReference)
	}
	userID, err := strconv.Atoi(rawID)
	if err != nil || userID <= 0 {
		return Reference{}, fmt.Errorf("%s: user id %q out of range: %w", op, rawID, models.ErrMalformedReference)
	}
	if token == "" || strings.TrimSpace(token) != token {
		return Reference{}, fmt.Errorf("%s: empty or padded product token: %w", op, models.ErrMalformedReference)
	}

	return Reference{UserID: userID, ProductToken: token}, nil
}

// Format собирает external_reference из идентификатора пользователя и токена продукта.
func Format(userID int, productToken string) string {
	return userPrefix + strconv.Itoa(userID) + productInfix + productToken
}

// isDigits отсекает знаки и пробелы, которые strconv.Atoi принял бы.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

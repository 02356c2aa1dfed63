package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// VerifySignature проверяет заголовок x-signature MercadoPago вида "ts=<ts>,v1=<hmac>".
// Подписывается строка "id:<data.id>;request-id:<x-request-id>;ts:<ts>;", отсутствующие части пропускаются.
func VerifySignature(secret, header, requestID, dataID string) error {
	const op = "webhook.VerifySignature"

	ts, v1 := parseSignatureHeader(header)
	if ts == "" || v1 == "" {
		return fmt.Errorf("%s: malformed header: %w", op, models.ErrInvalidSignature)
	}

	got, err := hex.DecodeString(v1)
	if err != nil {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(SignatureManifest(dataID, requestID, ts)))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidSignature)
	}
	return nil
}

// SignatureManifest строка, которую подписывает MercadoPago.
func SignatureManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

func sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureManifest(t *testing.T) {
	assert.Equal(t, "id:abc123;request-id:req-1;ts:1704908010;", SignatureManifest("ABC123", "req-1", "1704908010"))
	assert.Equal(t, "id:1;ts:5;", SignatureManifest("1", "", "5"))
}

func TestVerifySignature(t *testing.T) {
	const secret = "whsec"
	valid := sign(secret, "id:123;request-id:req-1;ts:1704908010;")

	tests := []struct {
		name      string
		header    string
		requestID string
		dataID    string
		wantErr   bool
	}{
		{name: "valid", header: "ts=1704908010,v1=" + valid, requestID: "req-1", dataID: "123"},
		{name: "valid with spaces", header: " ts=1704908010 , v1=" + valid, requestID: "req-1", dataID: "123"},
		{name: "wrong data id", header: "ts=1704908010,v1=" + valid, requestID: "req-1", dataID: "124", wantErr: true},
		{name: "wrong request id", header: "ts=1704908010,v1=" + valid, requestID: "req-2", dataID: "123", wantErr: true},
		{name: "missing ts", header: "v1=" + valid, requestID: "req-1", dataID: "123", wantErr: true},
		{name: "not hex", header: "ts=1704908010,v1=zz", requestID: "req-1", dataID: "123", wantErr: true},
		{name: "empty header", header: "", requestID: "req-1", dataID: "123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(secret, tt.header, tt.requestID, tt.dataID)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

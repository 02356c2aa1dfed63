package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_CreateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 15*time.Minute)

	tests := []struct {
		name   string
		userID int
		email  string
	}{
		{name: "regular user", userID: 1, email: "buyer@example.com"},
		{name: "large id", userID: 987654, email: "other@example.com"},
		{name: "empty email", userID: 42, email: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.CreateToken(tt.userID, tt.email)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.email, claims.Email)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_CreateToken_RejectsBadUser(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute)
	_, err := maker.CreateToken(0, "x@example.com")
	assert.Error(t, err)
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, err := maker.CreateToken(7, "buyer@example.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: mustToken(t, NewJWTMaker(secretKey, -time.Hour), 7)},
		{name: "wrong secret key", token: mustToken(t, NewJWTMaker("wrong_secret_key", time.Minute), 7)},
		{name: "tampered token", token: validToken + "tampered"},
		{name: "no user id", token: signRaw(t, secretKey, jwt.MapClaims{"email": "x@example.com", "exp": time.Now().Add(time.Hour).Unix()})},
		{name: "none algorithm", token: noneToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_ParseToken_SubjectFallback(t *testing.T) {
	secretKey := "secret"
	token := signRaw(t, secretKey, jwt.MapClaims{"sub": "15", "exp": time.Now().Add(time.Hour).Unix()})

	claims, err := NewJWTMaker(secretKey, time.Hour).ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, 15, claims.UserID)
}

func TestJWTMaker_TokenExpiration(t *testing.T) {
	maker := NewJWTMaker("test_secret_key", time.Minute)
	current := time.Now()
	maker.now = func() time.Time { return current }

	token, err := maker.CreateToken(3, "x@example.com")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func mustToken(t *testing.T, maker *MakerImpl, userID int) string {
	t.Helper()
	token, err := maker.CreateToken(userID, "x@example.com")
	require.NoError(t, err)
	return token
}

func signRaw(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func noneToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}

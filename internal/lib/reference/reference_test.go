package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Reference
	}{
		{
			name:  "catalog product id",
			input: "user_42_product_7",
			want:  Reference{UserID: 42, ProductToken: "7"},
		},
		{
			name:  "legacy plan label",
			input: "user_1_product_mensal",
			want:  Reference{UserID: 1, ProductToken: "mensal"},
		},
		{
			name:  "token with underscores",
			input: "user_15_product_product_3",
			want:  Reference{UserID: 15, ProductToken: "product_3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "garbage", input: "garbage"},
		{name: "empty", input: ""},
		{name: "non numeric user id", input: "user_abc_product_7"},
		{name: "signed user id", input: "user_+5_product_7"},
		{name: "negative user id", input: "user_-5_product_7"},
		{name: "zero user id", input: "user_0_product_7"},
		{name: "missing product segment", input: "user_5"},
		{name: "missing user id", input: "user__product_7"},
		{name: "empty product token", input: "user_5_product_"},
		{name: "padded product token", input: "user_5_product_ 7"},
		{name: "wrong prefix", input: "usr_5_product_7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrMalformedReference)
			assert.Equal(t, Reference{}, got)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	ref := Format(9, "anual")
	assert.Equal(t, "user_9_product_anual", ref)

	got, err := Parse(ref)
	require.NoError(t, err)
	assert.Equal(t, Reference{UserID: 9, ProductToken: "anual"}, got)
}

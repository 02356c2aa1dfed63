package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	type request struct {
		HWID  string `json:"hwid" validate:"required,printascii,max=8"`
		Count string `json:"count" validate:"numeric"`
	}

	tests := []struct {
		name    string
		req     request
		wantMsg string
	}{
		{
			name:    "missing required",
			req:     request{Count: "1"},
			wantMsg: "field HWID is a required field",
		},
		{
			name:    "too long and not numeric",
			req:     request{HWID: "ABCDEFGHIJ", Count: "x"},
			wantMsg: "field HWID is too long, field Count can contain only numbers",
		},
	}

	v := validator.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			require.Error(t, err)

			resp := ValidationError(err.(validator.ValidationErrors))
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

func TestWebhookResponses(t *testing.T) {
	assert.Equal(t, WebhookResponse{Status: "ok", Message: "done"}, WebhookOK("done"))
	assert.Equal(t, WebhookResponse{Status: "error", Message: "bad"}, WebhookError("bad"))
	assert.Equal(t, ErrorResponse{Status: "error", Error: "boom"}, Error("boom"))
	assert.Equal(t, Response{Status: "ok", Data: 1}, StatusOKWithData(1))
}

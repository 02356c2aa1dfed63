package hwid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/license-reconciler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) BindHWID(ctx context.Context, userID int, hwid string) error {
	return m.Called(ctx, userID, hwid).Error(0)
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "first binding",
			body: `{"hwid":"ABCD-1234"}`,
			setupMock: func(m *MockService) {
				m.On("BindHWID", mock.Anything, 5, "ABCD-1234").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"hwid":"ABCD-1234"`,
		},
		{
			name: "other device",
			body: `{"hwid":"ZZZZ-0000"}`,
			setupMock: func(m *MockService) {
				m.On("BindHWID", mock.Anything, 5, "ZZZZ-0000").Return(models.ErrHWIDMismatch)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"license is bound to another device"`,
		},
		{
			name: "storage failure",
			body: `{"hwid":"ABCD-1234"}`,
			setupMock: func(m *MockService) {
				m.On("BindHWID", mock.Anything, 5, "ABCD-1234").Return(errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "broken json",
			body:           `{"hwid":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "missing hwid",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field HWID is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			req := httptest.NewRequest(http.MethodPost, "/license/hwid", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, 5))
			w := httptest.NewRecorder()

			New(logger, service).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			service.AssertExpectations(t)
		})
	}
}

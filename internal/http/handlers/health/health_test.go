package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name         string
		checks       map[string]Pinger
		wantCode     int
		wantContains string
	}{
		{
			name:         "all healthy",
			checks:       map[string]Pinger{"postgres": ok, "redis": ok},
			wantCode:     http.StatusOK,
			wantContains: `"redis":"ok"`,
		},
		{
			name:         "redis down",
			checks:       map[string]Pinger{"postgres": ok, "redis": down},
			wantCode:     http.StatusServiceUnavailable,
			wantContains: `"redis":"unavailable"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			New(logger, tt.checks).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantContains)
		})
	}
}

package plans

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

type CatalogMock struct {
	mock.Mock
}

func (m *CatalogMock) ListActiveProducts(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*models.Product)
	return p, args.Error(1)
}

type plansBody struct {
	Status string `json:"status"`
	Data   struct {
		Plans []Plan `json:"plans"`
	} `json:"data"`
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("catalog and legacy", func(t *testing.T) {
		catalog := new(CatalogMock)
		catalog.On("ListActiveProducts", mock.Anything).Return([]*models.Product{
			{ID: 12, Name: "Pro 90", Price: decimal.RequireFromString("199.90"), DurationDays: 90, IsActive: true},
		}, nil).Once()

		w := httptest.NewRecorder()
		New(logger, models.DefaultPlans(), catalog).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body plansBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data.Plans, 4)

		assert.Equal(t, "12", body.Data.Plans[0].ID)
		assert.False(t, body.Data.Plans[0].Legacy)
		assert.Equal(t, 90, body.Data.Plans[0].Days)

		ids := []string{body.Data.Plans[1].ID, body.Data.Plans[2].ID, body.Data.Plans[3].ID}
		assert.Equal(t, []string{"anual", "mensal", "trimestral"}, ids)
		assert.True(t, body.Data.Plans[2].Legacy)
		assert.Equal(t, 30, body.Data.Plans[2].Days)
		catalog.AssertExpectations(t)
	})

	t.Run("legacy only", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(logger, map[string]models.Plan{"mensal": {Name: "Mensal", Price: 10, Days: 30}}, nil).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body plansBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Data.Plans, 1)
	})

	t.Run("catalog failure", func(t *testing.T) {
		catalog := new(CatalogMock)
		catalog.On("ListActiveProducts", mock.Anything).Return(nil, errors.New("db down")).Once()

		w := httptest.NewRecorder()
		New(logger, nil, catalog).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

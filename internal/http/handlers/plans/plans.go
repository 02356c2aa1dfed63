// Package plans отдаёт список планов: legacy-таблицу и активные продукты каталога.
package plans

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/license-reconciler/internal/http/response"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Catalog активные продукты каталога.
type Catalog interface {
	ListActiveProducts(ctx context.Context) ([]*models.Product, error)
}

// Plan элемент ответа. ID подставляется во внешнюю ссылку платежа user_<id>_product_<ID>.
type Plan struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Days   int             `json:"days"`
	Legacy bool            `json:"legacy"`
}

// Handler обработчик GET /plans.
type Handler struct {
	log     *slog.Logger
	legacy  map[string]models.Plan
	catalog Catalog
}

// New создаёт Handler. catalog может быть nil, тогда отдаются только legacy-планы.
func New(log *slog.Logger, legacy map[string]models.Plan, catalog Catalog) *Handler {
	return &Handler{
		log:     log,
		legacy:  legacy,
		catalog: catalog,
	}
}

// ServeHTTP godoc
// @Summary Список планов
// @Description Возвращает продукты каталога и legacy-планы с их сроком в днях.
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.Response "Планы"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var result []Plan
	if h.catalog != nil {
		products, err := h.catalog.ListActiveProducts(r.Context())
		if err != nil {
			log.Error("failed to list products", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not list plans"))
			return
		}
		for _, p := range products {
			result = append(result, Plan{
				ID:    strconv.Itoa(p.ID),
				Name:  p.Name,
				Price: p.Price,
				Days:  p.DurationDays,
			})
		}
	}

	keys := make([]string, 0, len(h.legacy))
	for key := range h.legacy {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		p := h.legacy[key]
		result = append(result, Plan{
			ID:     key,
			Name:   p.Name,
			Price:  decimal.NewFromFloat(p.Price),
			Days:   p.Days,
			Legacy: true,
		})
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{"plans": result}))
}

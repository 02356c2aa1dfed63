// Package paymentstatus отдаёт пользователю запись журнала по идентификатору платежа в шлюзе.
package paymentstatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/license-reconciler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-reconciler/internal/http/response"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Service возвращает платёж пользователя.
type Service interface {
	PaymentStatus(ctx context.Context, userID int, gatewayID string) (*models.Payment, error)
}

// Handler обработчик GET /payments/{gateway_id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Статус платежа
// @Description Возвращает платёж текущего пользователя по идентификатору MercadoPago.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param gateway_id path string true "Идентификатор платежа в MercadoPago"
// @Success 200 {object} response.Response "Платёж"
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/{gateway_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	gatewayID := chi.URLParam(r, "gateway_id")
	if gatewayID == "" {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	}

	payment, err := h.service.PaymentStatus(r.Context(), userID, gatewayID)
	if errors.Is(err, models.ErrPaymentNotFound) {
		log.Info("payment not found", sl.UserID(userID), sl.GatewayID(gatewayID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	}
	if err != nil {
		log.Error("failed to read payment", sl.UserID(userID), sl.GatewayID(gatewayID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read payment"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(payment))
}

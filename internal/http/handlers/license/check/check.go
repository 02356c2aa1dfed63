// Package check отдаёт текущее состояние лицензии пользователя.
package check

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/license-reconciler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-reconciler/internal/http/response"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
	"github.com/magabrotheeeer/license-reconciler/internal/services/license"
)

// Service проверяет лицензию.
type Service interface {
	Check(ctx context.Context, userID int) (*license.Check, error)
}

// Handler обработчик GET /license/check.
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
// @Summary Проверка лицензии
// @Description Возвращает статус лицензии текущего пользователя, остаток срока и право на загрузку.
// @Tags License
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} license.Check "Состояние лицензии"
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /license/check [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.license.check"
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

	res, err := h.service.Check(r.Context(), userID)
	if errors.Is(err, models.ErrUserNotFound) {
		log.Warn("license check for unknown user", sl.UserID(userID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to check license", sl.UserID(userID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check license"))
		return
	}

	log.Debug("license checked", sl.UserID(userID), slog.String("status", res.Status))
	render.JSON(w, r, res)
}

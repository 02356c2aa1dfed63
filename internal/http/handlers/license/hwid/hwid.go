// Package hwid привязывает лицензию к устройству пользователя.
package hwid

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/license-reconciler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/license-reconciler/internal/http/response"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Request тело запроса привязки.
type Request struct {
	HWID string `json:"hwid" validate:"required,printascii,min=4,max=128"`
}

// Service привязывает устройство.
type Service interface {
	BindHWID(ctx context.Context, userID int, hwid string) error
}

// Handler обработчик POST /license/hwid.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Привязка устройства
// @Description Привязывает лицензию к идентификатору устройства. Повторная привязка того же устройства допустима.
// @Tags License
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Идентификатор устройства"
// @Success 200 {object} response.Response "Устройство привязано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Лицензия привязана к другому устройству"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /license/hwid [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.license.hwid"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.BindHWID(r.Context(), userID, req.HWID)
	switch {
	case errors.Is(err, models.ErrHWIDMismatch):
		log.Warn("hwid mismatch", sl.UserID(userID))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("license is bound to another device"))
	case errors.Is(err, models.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
	case err != nil:
		log.Error("failed to bind hwid", sl.UserID(userID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not bind device"))
	default:
		log.Info("hwid bound", sl.UserID(userID))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"hwid": req.HWID}))
	}
}

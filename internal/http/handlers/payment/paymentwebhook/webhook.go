// Package paymentwebhook принимает уведомления MercadoPago о платежах.
//
// Уведомление может прийти JSON-телом, формой или параметрами строки запроса.
// Ответ 200 означает, что шлюзу не нужно повторять доставку, 5xx просит повтор.
package paymentwebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/license-reconciler/internal/http/response"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/models"
	"github.com/magabrotheeeer/license-reconciler/internal/services/webhook"
)

const maxBodySize = 1 << 20

// Request уведомление после разбора любого из поддерживаемых форматов.
type Request struct {
	Type   string `json:"type" validate:"required,max=64"`
	DataID string `json:"data_id" validate:"omitempty,max=64,printascii"`
}

type jsonBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
	ID json.RawMessage `json:"id"`
}

// Processor обрабатывает разобранное уведомление.
type Processor interface {
	Process(ctx context.Context, n webhook.Notification) (*webhook.Outcome, error)
}

// Handler обработчик уведомлений шлюза.
type Handler struct {
	log           *slog.Logger
	processor     Processor
	validate      *validator.Validate
	webhookSecret string // пустой секрет отключает проверку x-signature
}

// New создаёт Handler.
func New(log *slog.Logger, processor Processor, secret string) *Handler {
	return &Handler{
		log:           log,
		processor:     processor,
		validate:      validator.New(),
		webhookSecret: secret,
	}
}

// ServeHTTP godoc
// @Summary Уведомление MercadoPago
// @Description Принимает уведомление о платеже, сверяет его со шлюзом и продлевает лицензию.
// @Tags Webhook
// @Accept  json
// @Produce  json
// @Param x-signature header string false "Подпись MercadoPago"
// @Param x-request-id header string false "Идентификатор запроса MercadoPago"
// @Success 200 {object} response.WebhookResponse "Уведомление принято"
// @Failure 401 {object} response.WebhookResponse "Неверная подпись"
// @Failure 500 {object} response.WebhookResponse "Внутренняя ошибка, шлюз повторит доставку"
// @Failure 503 {object} response.WebhookResponse "Шлюз недоступен, шлюз повторит доставку"
// @Router /webhook/mercadopago [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	req, err := parseRequest(r)
	if err != nil {
		log.Warn("unreadable webhook notification", sl.Err(err))
		render.JSON(w, r, response.WebhookError("unreadable notification"))
		return
	}

	if h.webhookSecret != "" {
		err := webhook.VerifySignature(h.webhookSecret, r.Header.Get("x-signature"), r.Header.Get("x-request-id"), req.DataID)
		if err != nil {
			log.Warn("webhook signature rejected", sl.GatewayID(req.DataID), sl.Err(err))
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.WebhookError("invalid signature"))
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		msg := "invalid notification"
		if errors.As(err, &verrs) {
			msg = response.ValidationError(verrs).Error
		}
		log.Warn("webhook notification failed validation", sl.Err(err))
		render.JSON(w, r, response.WebhookError(msg))
		return
	}

	outcome, err := h.processor.Process(r.Context(), webhook.Notification{Type: req.Type, DataID: req.DataID})
	switch {
	case err == nil:
		log.Info("webhook processed",
			sl.GatewayID(req.DataID),
			slog.String("result", outcome.Result),
			slog.String("gateway_status", outcome.GatewayStatus),
		)
		render.JSON(w, r, response.WebhookOK(outcome.Message))
	case errors.Is(err, models.ErrTransientGateway):
		log.Warn("gateway unavailable, asking for redelivery", sl.GatewayID(req.DataID), sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.WebhookError("payment gateway unavailable"))
	case webhook.Rejected(err):
		log.Error("webhook notification rejected", sl.GatewayID(req.DataID), sl.Err(err))
		render.JSON(w, r, response.WebhookError(rejectionMessage(err)))
	default:
		log.Error("failed to process webhook", sl.GatewayID(req.DataID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.WebhookError("internal error"))
	}
}

func rejectionMessage(err error) string {
	for _, target := range []error{
		models.ErrMalformedReference,
		models.ErrUserNotFound,
		models.ErrProductNotFound,
		models.ErrResolutionFailure,
		models.ErrPermanentGateway,
		models.ErrInvalidNotification,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "notification rejected"
}

// parseRequest читает JSON-тело, затем форму, затем строку запроса.
// Каждый следующий источник заполняет только пустые поля.
func parseRequest(r *http.Request) (Request, error) {
	var req Request

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return req, err
	}
	defer r.Body.Close()

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var jb jsonBody
		if err := json.Unmarshal(trimmed, &jb); err != nil {
			return req, err
		}
		req.Type = firstNonEmpty(jb.Type, jb.Topic)
		req.DataID = firstNonEmpty(rawID(jb.Data.ID), rawID(jb.ID))
	} else if len(trimmed) > 0 && isForm(r) {
		form, err := url.ParseQuery(string(trimmed))
		if err != nil {
			return req, err
		}
		fill(&req, form)
	}

	fill(&req, r.URL.Query())
	return req, nil
}

func fill(req *Request, values url.Values) {
	if req.Type == "" {
		req.Type = firstNonEmpty(values.Get("type"), values.Get("topic"))
	}
	if req.DataID == "" {
		req.DataID = firstNonEmpty(values.Get("data.id"), values.Get("id"))
	}
}

func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

// rawID принимает идентификатор и строкой, и числом.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

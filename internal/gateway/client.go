// Package gateway клиент REST API MercadoPago: получение платежей и метаданных preference.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/magabrotheeeer/license-reconciler/internal/lib/metrics"
)

// DefaultBaseURL адрес публичного API MercadoPago.
const DefaultBaseURL = "https://api.mercadopago.com"

const maxErrorBody = 64 << 10

// Client клиент платёжного шлюза. Создаётся один раз при старте и передаётся зависимостям.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
}

// Option настройка клиента.
type Option func(*Client)

// WithHTTPClient заменяет http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBreaker заменяет circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// NewBreaker создаёт circuit breaker, который размыкается после пяти ошибок подряд.
func NewBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// New создаёт клиент MercadoPago.
func New(baseURL, accessToken string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		breaker:     NewBreaker("mercadopago"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPayment получает платёж по идентификатору шлюза.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	const op = "gateway.FetchPayment"

	if strings.TrimSpace(paymentID) == "" {
		return nil, fmt.Errorf("%s: %w", op, permanent(0, "empty payment id", nil))
	}

	var resp paymentResponse
	if err := c.get(ctx, "payments", "/v1/payments/"+url.PathEscape(paymentID), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id := resp.ID.String()
	if id == "" {
		id = paymentID
	}
	return &PaymentDetails{
		ID:                id,
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		Amount:            resp.TransactionAmount,
		ExternalReference: resp.ExternalReference,
		PreferenceID:      resp.PreferenceID,
	}, nil
}

// FetchPreferenceMetadata получает metadata checkout-preference.
// Нестроковые значения приводятся к строке.
func (c *Client) FetchPreferenceMetadata(ctx context.Context, preferenceID string) (map[string]string, error) {
	const op = "gateway.FetchPreferenceMetadata"

	if strings.TrimSpace(preferenceID) == "" {
		return nil, fmt.Errorf("%s: %w", op, permanent(0, "empty preference id", nil))
	}

	var resp preferenceResponse
	if err := c.get(ctx, "preferences", "/checkout/preferences/"+url.PathEscape(preferenceID), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metadata := make(map[string]string, len(resp.Metadata))
	for key, raw := range resp.Metadata {
		if v, ok := stringify(raw); ok {
			metadata[key] = v
		}
	}
	return metadata, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	started := time.Now()
	err := c.do(ctx, http.MethodGet, path, out)
	result := "ok"
	var gwErr *Error
	if errors.As(err, &gwErr) {
		result = "permanent"
		if gwErr.Transient {
			result = "transient"
		}
	}
	metrics.GatewayRequest(endpoint, result, started)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return permanent(0, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= http.StatusInternalServerError || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		if resp != nil {
			msg := readErrorMessage(resp.Body)
			resp.Body.Close()
			return transient(resp.StatusCode, msg, nil)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return transient(0, "circuit breaker open", err)
		}
		return transient(0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return permanent(resp.StatusCode, readErrorMessage(resp.Body), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return permanent(resp.StatusCode, "decode response body", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var e errorResponse
	if err := json.Unmarshal(data, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return ""
}

func stringify(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	default:
		return string(raw), true
	}
}

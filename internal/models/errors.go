package models

import "errors"

var (
	// ErrTransientGateway шлюз недоступен (сеть, таймаут, 5xx); запрос стоит повторить позже.
	ErrTransientGateway = errors.New("payment gateway temporarily unavailable")
	// ErrPermanentGateway шлюз отклонил запрос (4xx); повтор не поможет.
	ErrPermanentGateway = errors.New("payment gateway rejected request")
	// ErrMalformedReference external_reference не соответствует формату user_<id>_product_<token>.
	ErrMalformedReference = errors.New("malformed external reference")
	// ErrResolutionFailure ни один источник не дал положительного количества дней.
	ErrResolutionFailure = errors.New("could not resolve license duration")
	// ErrDuplicatePayment платёж уже применён, повторная доставка уведомления.
	ErrDuplicatePayment = errors.New("payment already processed")
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	// ErrInvalidNotification уведомление без типа или идентификатора платежа.
	ErrInvalidNotification = errors.New("invalid gateway notification")
	// ErrInvalidSignature подпись уведомления не совпала с секретом.
	ErrInvalidSignature = errors.New("invalid notification signature")
	// ErrHWIDMismatch пользователь уже привязан к другому устройству.
	ErrHWIDMismatch = errors.New("user is bound to another device")
)

package gateway

import (
	"fmt"

	"github.com/magabrotheeeer/license-reconciler/internal/models"
)

// Error ошибка обращения к платёжному шлюзу.
// Разворачивается в models.ErrTransientGateway или models.ErrPermanentGateway.
type Error struct {
	StatusCode int
	Message    string
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("gateway %s error: status %d: %s", kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s error: status %d", kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s error: %v", kind, e.Err)
	default:
		return fmt.Sprintf("gateway %s error: %s", kind, e.Message)
	}
}

func (e *Error) Unwrap() []error {
	kind := models.ErrPermanentGateway
	if e.Transient {
		kind = models.ErrTransientGateway
	}
	if e.Err != nil {
		return []error{kind, e.Err}
	}
	return []error{kind}
}

func transient(statusCode int, msg string, err error) *Error {
	return &Error{StatusCode: statusCode, Message: msg, Transient: true, Err: err}
}

func permanent(statusCode int, msg string, err error) *Error {
	return &Error{StatusCode: statusCode, Message: msg, Err: err}
}

// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель упростить формирование структурированных полей лога,
// например, для передачи информации об ошибках.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
// Для nil возвращается пустая строка, чтобы логирование не падало.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// GatewayID возвращает атрибут с идентификатором платежа в шлюзе.
func GatewayID(id string) slog.Attr {
	return slog.String("gateway_id", id)
}

// UserID возвращает атрибут с идентификатором пользователя.
func UserID(id int) slog.Attr {
	return slog.Int("user_id", id)
}

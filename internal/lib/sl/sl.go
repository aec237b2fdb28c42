// Package sl дополняет slog атрибутами, общими для всех сервисов платформы.
package sl

import "log/slog"

// Err оборачивает ошибку в атрибут с ключом "error", чтобы ошибки
// в логах подписок и квизов выглядели одинаково.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

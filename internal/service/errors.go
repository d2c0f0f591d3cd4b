// Пакет service — бизнес-логика системы регистрации сопровождающих IGD.
package service

import (
	"errors"
	"strings"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — запись или изображение не найдены.
	ErrNotFound = errors.New("запись не найдена")
	// ErrValidation — входные данные не прошли валидацию.
	ErrValidation = errors.New("ошибка валидации")
)

// ValidationError — ошибка валидации с сообщениями по полям.
// Ключи — JSON-имена полей, значения — человекочитаемые сообщения
// на английском (контракт совместимости с веб-фронтендом).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Is позволяет проверять ValidationError через errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// newValidationError создаёт ValidationError, если карта полей не пуста.
func newValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

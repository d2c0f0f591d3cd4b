// Пакет api — единый формат ответа обоих backend:
// {"status": "success"|"error", "message": ..., "data": ..., "meta": ..., "errors": ...}.
// Формат и тексты сообщений — контракт совместимости с веб-фронтендом,
// оба backend обязаны отвечать идентично.
package api

import (
	"encoding/json"
	"net/http"
)

// Значения поля status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response — стандартный конверт ответа.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Meta — метаданные пагинации списка.
type Meta struct {
	CurrentPage int   `json:"current_page,omitempty"`
	TotalPages  int   `json:"total_pages,omitempty"`
	PerPage     int   `json:"per_page,omitempty"`
	Total       int64 `json:"total,omitempty"`
}

// WriteJSON записывает конверт с указанным HTTP статус-кодом.
// Все ответы обоих backend должны проходить через эту функцию.
func WriteJSON(w http.ResponseWriter, statusCode int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// Success — успешный ответ с данными.
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, &Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessWithMeta — успешный ответ списка с метаданными пагинации.
func SuccessWithMeta(w http.ResponseWriter, statusCode int, message string, data any, meta *Meta) {
	WriteJSON(w, statusCode, &Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Error — ответ с ошибкой без детализации по полям.
func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, &Response{
		Status:  StatusError,
		Message: message,
	})
}

// ValidationFailed — 422 с картой ошибок по полям.
func ValidationFailed(w http.ResponseWriter, fields map[string]string) {
	WriteJSON(w, http.StatusUnprocessableEntity, &Response{
		Status:  StatusError,
		Message: "Validation failed",
		Errors:  fields,
	})
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// Internal — 500 внутренняя ошибка. Причина логируется, клиенту не раскрывается.
func Internal(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// qr.go — генерация QR-кода ссылки на форму регистрации.
// GET отдаёт PNG, POST — data URL в JSON-конверте.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/TheDex-dev/Goravel/internal/api"
	"github.com/TheDex-dev/Goravel/internal/domain/model"
)

// Размер QR-кода в пикселях.
const (
	qrDefaultSize = 256
	qrMinSize     = 100
	qrMaxSize     = 1000
)

// QRCodeHandler — обработчики генерации QR-кодов.
type QRCodeHandler struct {
	logger *slog.Logger
}

// NewQRCodeHandler создаёт обработчики QR-кодов.
func NewQRCodeHandler(logger *slog.Logger) *QRCodeHandler {
	return &QRCodeHandler{
		logger: logger.With(slog.String("component", "qr-handler")),
	}
}

// Generate — GET /api/qr-code/form?url=...&size=... Отдаёт PNG.
func (h *QRCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, _ := strconv.Atoi(q.Get("size"))
	req := model.QRCodeRequest{
		URL:  q.Get("url"),
		Size: size,
	}

	png, ok := h.encode(w, &req)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// GenerateJSON — POST /api/qr-code/form. Отдаёт data URL в конверте.
func (h *QRCodeHandler) GenerateJSON(w http.ResponseWriter, r *http.Request) {
	var req model.QRCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	png, ok := h.encode(w, &req)
	if !ok {
		return
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	api.Success(w, http.StatusOK, "QR code generated successfully", map[string]any{
		"qr_code": dataURL,
		"url":     req.URL,
		"size":    req.Size,
		"format":  "PNG",
	})
}

// encode валидирует запрос и кодирует QR-код.
// При ошибке пишет ответ и возвращает ok=false.
func (h *QRCodeHandler) encode(w http.ResponseWriter, req *model.QRCodeRequest) ([]byte, bool) {
	if req.Size == 0 {
		req.Size = qrDefaultSize
	}

	if fields := validateQRRequest(req); len(fields) > 0 {
		api.ValidationFailed(w, fields)
		return nil, false
	}

	png, err := qrcode.Encode(req.URL, qrcode.Medium, req.Size)
	if err != nil {
		h.logger.Error("Ошибка генерации QR-кода", slog.String("error", err.Error()))
		api.Internal(w, "Failed to generate QR code")
		return nil, false
	}
	return png, true
}

// validateQRRequest проверяет URL и диапазон размера.
func validateQRRequest(req *model.QRCodeRequest) map[string]string {
	fields := map[string]string{}

	if req.URL == "" {
		fields["url"] = "url is required"
	} else if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
		fields["url"] = "url must be a valid URL"
	}

	if req.Size < qrMinSize {
		fields["size"] = "size must be at least 100 characters"
	} else if req.Size > qrMaxSize {
		fields["size"] = "size must not exceed 1000 characters"
	}

	return fields
}

// Пакет handlers — обработчики HTTP API основного backend (chi).
// Контракт ответов общий с legacy backend (пакет api).
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TheDex-dev/Goravel/internal/api"
	"github.com/TheDex-dev/Goravel/internal/domain/model"
	"github.com/TheDex-dev/Goravel/internal/service"
)

// EscortHandler — обработчики CRUD записей о сопровождающих.
type EscortHandler struct {
	svc    *service.EscortService
	logger *slog.Logger
}

// NewEscortHandler создаёт обработчики записей.
func NewEscortHandler(svc *service.EscortService, logger *slog.Logger) *EscortHandler {
	return &EscortHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "escort-handler")),
	}
}

// Routes регистрирует маршруты записей на chi-роутере.
// adminMW — опциональный middleware аутентификации административных
// операций (nil — операции открыты).
func (h *EscortHandler) Routes(r chi.Router, adminMW func(http.Handler) http.Handler) {
	r.Get("/api/escort", h.List)
	r.Post("/api/escort", h.Create)
	r.Get("/api/escort/{id}", h.Get)
	r.Get("/api/escort/{id}/image", h.GetImage)
	r.Post("/api/escort/{id}/image", h.UploadImage)
	// Совместимость со старыми путями
	r.Get("/api/escort/{id}/image/base64", h.GetImage)
	r.Post("/api/escort/{id}/image/base64", h.UploadImage)

	r.Get("/api/dashboard/stats", h.Stats)
	r.Get("/api/session-stats", h.Stats)

	// Административные операции — за аутентификацией, если она включена
	r.Group(func(r chi.Router) {
		if adminMW != nil {
			r.Use(adminMW)
		}
		r.Put("/api/escort/{id}", h.Update)
		r.Patch("/api/escort/{id}", h.Update)
		r.Delete("/api/escort/{id}", h.Delete)
		r.Patch("/api/escort/{id}/status", h.UpdateStatus)
	})
}

// Create — POST /api/escort. Создаёт запись, 201 при успехе.
func (h *EscortHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEscortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := h.svc.Create(r.Context(), &req, clientIP(r))
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to create escort")
		return
	}

	api.Success(w, http.StatusCreated, "Escort created successfully", e)
}

// List — GET /api/escort. Список с фильтрацией, поиском и пагинацией.
func (h *EscortHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)

	list, meta, err := h.svc.List(r.Context(), filters)
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to retrieve escorts")
		return
	}

	api.SuccessWithMeta(w, http.StatusOK, "Escorts retrieved successfully", list, &api.Meta{
		CurrentPage: meta.CurrentPage,
		TotalPages:  meta.TotalPages,
		PerPage:     meta.PerPage,
		Total:       meta.Total,
	})
}

// Get — GET /api/escort/{id}.
func (h *EscortHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to retrieve escort")
		return
	}

	api.Success(w, http.StatusOK, "Escort retrieved successfully", e)
}

// Update — PUT/PATCH /api/escort/{id}. Частичное обновление.
func (h *EscortHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	var req model.UpdateEscortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := h.svc.Update(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to update escort")
		return
	}

	api.Success(w, http.StatusOK, "Escort updated successfully", e)
}

// UpdateStatus — PATCH /api/escort/{id}/status.
func (h *EscortHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to update escort status")
		return
	}

	api.Success(w, http.StatusOK, "Escort status updated successfully", e)
}

// Delete — DELETE /api/escort/{id}.
func (h *EscortHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to delete escort")
		return
	}

	api.Success(w, http.StatusOK, "Escort deleted successfully", nil)
}

// GetImage — GET /api/escort/{id}/image. Фотография как data URL.
func (h *EscortHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	dataURL, err := h.svc.GetImage(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Image not found", "Failed to retrieve image")
		return
	}

	api.Success(w, http.StatusOK, "Image retrieved successfully", map[string]string{
		"image_base64": dataURL,
	})
}

// UploadImage — POST /api/escort/{id}/image.
func (h *EscortHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	var req model.UploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := h.svc.UploadImage(r.Context(), id, req.ImageBase64)
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to upload image")
		return
	}

	api.Success(w, http.StatusOK, "Image uploaded successfully", e)
}

// Stats — GET /api/dashboard/stats (и alias /api/session-stats).
func (h *EscortHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Escort not found", "Failed to retrieve dashboard statistics")
		return
	}

	api.Success(w, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}

// --- Вспомогательные функции ---

// idParam извлекает и валидирует {id} из пути.
// При ошибке пишет ответ и возвращает ok=false.
func (h *EscortHandler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		api.Error(w, http.StatusBadRequest, "Invalid escort ID")
		return 0, false
	}
	return id, true
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
// Внутренние причины логируются, клиенту не раскрываются.
func (h *EscortHandler) writeServiceError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		api.ValidationFailed(w, ve.Fields)
	case errors.Is(err, service.ErrNotFound):
		api.NotFound(w, notFoundMsg)
	default:
		h.logger.Error(failMsg, slog.String("error", err.Error()))
		api.Internal(w, failMsg)
	}
}

// parseFilters разбирает query-параметры списка.
func parseFilters(r *http.Request) model.EscortFilters {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	return model.EscortFilters{
		Status:            q.Get("status"),
		KategoriPengantar: q.Get("kategori_pengantar"),
		JenisKelamin:      q.Get("jenis_kelamin"),
		Search:            q.Get("search"),
		SameDay:           parseBoolParam(q.Get("same_day")),
		Page:              page,
		PerPage:           perPage,
		SortBy:            q.Get("sort_by"),
		SortOrder:         q.Get("sort_order"),
	}
}

// parseBoolParam трактует 1/true/yes как true.
func parseBoolParam(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// clientIP возвращает IP клиента: первый адрес X-Forwarded-For
// (запрос прошёл через router) или RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

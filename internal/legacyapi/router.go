// Пакет legacyapi — резервный (legacy) backend на stdlib ServeMux.
// Вторая, независимая реализация того же API-контракта: разбор путей
// вручную, без chi. Конверт ответов и бизнес-логика общие с основным
// backend, расхождение контрактов ловит общий контрактный тест.
package legacyapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/TheDex-dev/Goravel/internal/api"
	"github.com/TheDex-dev/Goravel/internal/api/handlers"
	"github.com/TheDex-dev/Goravel/internal/domain/model"
	"github.com/TheDex-dev/Goravel/internal/service"
)

// Router — legacy HTTP-поверхность.
type Router struct {
	svc    *service.EscortService
	qr     *handlers.QRCodeHandler
	health *handlers.HealthHandler
	// adminMW — опциональная аутентификация административных операций
	adminMW func(http.Handler) http.Handler
	logger  *slog.Logger
}

// New создаёт legacy-поверхность поверх общего сервисного слоя.
func New(
	svc *service.EscortService,
	qr *handlers.QRCodeHandler,
	health *handlers.HealthHandler,
	adminMW func(http.Handler) http.Handler,
	logger *slog.Logger,
) *Router {
	return &Router{
		svc:     svc,
		qr:      qr,
		health:  health,
		adminMW: adminMW,
		logger:  logger.With(slog.String("component", "legacy-router")),
	}
}

// Handler собирает ServeMux со всеми маршрутами.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", rt.health.APIHealth)
	mux.HandleFunc("/health/live", rt.health.HealthLive)
	mux.HandleFunc("/health/ready", rt.health.HealthReady)
	mux.HandleFunc("/metrics", rt.health.GetMetrics)
	mux.HandleFunc("/api/escort", rt.escortCollection)
	mux.HandleFunc("/api/escort/", rt.escortItem)
	mux.HandleFunc("/api/dashboard/stats", rt.stats)
	mux.HandleFunc("/api/session-stats", rt.stats)
	mux.HandleFunc("/api/qr-code/form", rt.qrCode)
	mux.HandleFunc("/", rt.root)

	return mux
}

// root обрабатывает / и все несматченные пути.
func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		api.NotFound(w, "Not found")
		return
	}
	rt.health.ServiceInfo(w, r)
}

// escortCollection — GET (список) и POST (создание) /api/escort.
func (rt *Router) escortCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.list(w, r)
	case http.MethodPost:
		rt.create(w, r)
	default:
		methodNotAllowed(w)
	}
}

// escortItem разбирает пути вида /api/escort/{id}[/status|/image|/image/base64].
func (rt *Router) escortItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/escort/")
	idPart, suffix, _ := strings.Cut(rest, "/")

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 1 {
		api.Error(w, http.StatusBadRequest, "Invalid escort ID")
		return
	}

	switch suffix {
	case "":
		rt.escortByID(w, r, id)
	case "status":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}
		rt.admin(w, r, func(w http.ResponseWriter, r *http.Request) {
			rt.updateStatus(w, r, id)
		})
	case "image", "image/base64":
		switch r.Method {
		case http.MethodGet:
			rt.getImage(w, r, id)
		case http.MethodPost:
			rt.uploadImage(w, r, id)
		default:
			methodNotAllowed(w)
		}
	default:
		api.NotFound(w, "Not found")
	}
}

// escortByID — GET/PUT/PATCH/DELETE /api/escort/{id}.
func (rt *Router) escortByID(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		rt.get(w, r, id)
	case http.MethodPut, http.MethodPatch:
		rt.admin(w, r, func(w http.ResponseWriter, r *http.Request) {
			rt.update(w, r, id)
		})
	case http.MethodDelete:
		rt.admin(w, r, func(w http.ResponseWriter, r *http.Request) {
			rt.delete(w, r, id)
		})
	default:
		methodNotAllowed(w)
	}
}

// admin применяет аутентификацию административных операций, если она включена.
func (rt *Router) admin(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if rt.adminMW == nil {
		next(w, r)
		return
	}
	rt.adminMW(next).ServeHTTP(w, r)
}

func (rt *Router) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEscortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := rt.svc.Create(r.Context(), &req, clientIP(r))
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to create escort")
		return
	}

	api.Success(w, http.StatusCreated, "Escort created successfully", e)
}

func (rt *Router) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	filters := model.EscortFilters{
		Status:            q.Get("status"),
		KategoriPengantar: q.Get("kategori_pengantar"),
		JenisKelamin:      q.Get("jenis_kelamin"),
		Search:            q.Get("search"),
		SameDay:           q.Get("same_day") == "1" || strings.EqualFold(q.Get("same_day"), "true") || strings.EqualFold(q.Get("same_day"), "yes"),
		Page:              page,
		PerPage:           perPage,
		SortBy:            q.Get("sort_by"),
		SortOrder:         q.Get("sort_order"),
	}

	list, meta, err := rt.svc.List(r.Context(), filters)
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to retrieve escorts")
		return
	}

	api.SuccessWithMeta(w, http.StatusOK, "Escorts retrieved successfully", list, &api.Meta{
		CurrentPage: meta.CurrentPage,
		TotalPages:  meta.TotalPages,
		PerPage:     meta.PerPage,
		Total:       meta.Total,
	})
}

func (rt *Router) get(w http.ResponseWriter, r *http.Request, id int64) {
	e, err := rt.svc.Get(r.Context(), id)
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to retrieve escort")
		return
	}
	api.Success(w, http.StatusOK, "Escort retrieved successfully", e)
}

func (rt *Router) update(w http.ResponseWriter, r *http.Request, id int64) {
	var req model.UpdateEscortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := rt.svc.Update(r.Context(), id, &req)
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to update escort")
		return
	}
	api.Success(w, http.StatusOK, "Escort updated successfully", e)
}

func (rt *Router) updateStatus(w http.ResponseWriter, r *http.Request, id int64) {
	var req model.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := rt.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to update escort status")
		return
	}
	api.Success(w, http.StatusOK, "Escort status updated successfully", e)
}

func (rt *Router) delete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := rt.svc.Delete(r.Context(), id); err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to delete escort")
		return
	}
	api.Success(w, http.StatusOK, "Escort deleted successfully", nil)
}

func (rt *Router) getImage(w http.ResponseWriter, r *http.Request, id int64) {
	dataURL, err := rt.svc.GetImage(r.Context(), id)
	if err != nil {
		rt.writeServiceError(w, err, "Image not found", "Failed to retrieve image")
		return
	}
	api.Success(w, http.StatusOK, "Image retrieved successfully", map[string]string{
		"image_base64": dataURL,
	})
}

func (rt *Router) uploadImage(w http.ResponseWriter, r *http.Request, id int64) {
	var req model.UploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	e, err := rt.svc.UploadImage(r.Context(), id, req.ImageBase64)
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to upload image")
		return
	}
	api.Success(w, http.StatusOK, "Image uploaded successfully", e)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	stats, err := rt.svc.Stats(r.Context())
	if err != nil {
		rt.writeServiceError(w, err, "Escort not found", "Failed to retrieve dashboard statistics")
		return
	}
	api.Success(w, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}

func (rt *Router) qrCode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.qr.Generate(w, r)
	case http.MethodPost:
		rt.qr.GenerateJSON(w, r)
	default:
		methodNotAllowed(w)
	}
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
func (rt *Router) writeServiceError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		api.ValidationFailed(w, ve.Fields)
	case errors.Is(err, service.ErrNotFound):
		api.NotFound(w, notFoundMsg)
	default:
		rt.logger.Error(failMsg, slog.String("error", err.Error()))
		api.Internal(w, failMsg)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	api.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
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

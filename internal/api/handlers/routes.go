// routes.go — сборка chi-роутера основного backend.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TheDex-dev/Goravel/internal/api/middleware"
)

// NewRouter собирает chi-роутер основного backend: middleware,
// health endpoints, CRUD записей и генерация QR-кодов.
// adminMW — опциональная аутентификация административных операций.
func NewRouter(
	escort *EscortHandler,
	qr *QRCodeHandler,
	health *HealthHandler,
	adminMW func(http.Handler) http.Handler,
	corsOrigin string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORS(corsOrigin))

	r.Get("/", health.ServiceInfo)
	r.Get("/api/health", health.APIHealth)
	r.Get("/health/live", health.HealthLive)
	r.Get("/health/ready", health.HealthReady)
	r.Get("/metrics", health.GetMetrics)

	r.Get("/api/qr-code/form", qr.Generate)
	r.Post("/api/qr-code/form", qr.GenerateJSON)

	escort.Routes(r, adminMW)

	return r
}

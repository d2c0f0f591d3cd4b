// Точка входа Escort API — основного backend системы Pendataan IGD.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/TheDex-dev/Goravel/internal/api/handlers"
	"github.com/TheDex-dev/Goravel/internal/api/middleware"
	"github.com/TheDex-dev/Goravel/internal/config"
	"github.com/TheDex-dev/Goravel/internal/database"
	"github.com/TheDex-dev/Goravel/internal/imagestore"
	"github.com/TheDex-dev/Goravel/internal/repository"
	"github.com/TheDex-dev/Goravel/internal/server"
	"github.com/TheDex-dev/Goravel/internal/service"
)

const serviceName = "escort-api"

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load(8080)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Escort API запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// --- Инициализация компонентов ---

	// 1. Миграции схемы БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Пул соединений PostgreSQL
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 3. Хранилище фотографий
	images, err := imagestore.New(cfg.UploadDir, cfg.MaxImageBytes)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища фотографий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Репозиторий, кэш и сервис
	repo := repository.NewEscortRepository(pool)
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	svc := service.NewEscortService(repo, images, cache, cfg.DeleteReplacedPhoto, logger)

	// 5. JWT middleware административных операций (опционально)
	var adminMW func(http.Handler) http.Handler
	if cfg.AuthJWKSURL != "" {
		jwtAuth, jwtErr := middleware.NewJWTAuth(cfg.AuthJWKSURL, cfg.AuthIssuer, logger)
		if jwtErr != nil {
			logger.Warn("JWT JWKS недоступен, административные операции без аутентификации",
				slog.String("jwks_url", cfg.AuthJWKSURL),
				slog.String("error", jwtErr.Error()),
			)
		} else {
			adminMW = jwtAuth.Middleware()
			logger.Info("JWT аутентификация настроена",
				slog.String("jwks_url", cfg.AuthJWKSURL),
			)
		}
	}

	// 6. topologymetrics — мониторинг зависимостей
	var dephealthSvc *service.DephealthService
	if cfg.DephealthEnabled {
		db := stdlib.OpenDBFromPool(pool)
		dephealthSvc, err = service.NewBackendDephealth(
			serviceName,
			cfg.DephealthGroup,
			db,
			cfg.DatabaseDSN(),
			cfg.DephealthCheckInterval,
			cfg.DephealthIsEntry,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
			dephealthSvc = nil
		}
	}

	// 7. Handlers и роутер
	escortHandler := handlers.NewEscortHandler(svc, logger)
	qrHandler := handlers.NewQRCodeHandler(logger)
	healthHandler := handlers.NewHealthHandler(serviceName, database.NewReadinessChecker(pool))

	handler := handlers.NewRouter(escortHandler, qrHandler, healthHandler, adminMW, cfg.CORSOrigin, logger)

	// 8. HTTP-сервер с graceful shutdown
	srv := server.New(server.Options{
		Port:            cfg.Port,
		ReadTimeout:     cfg.HTTPReadTimeout,
		WriteTimeout:    cfg.HTTPWriteTimeout,
		IdleTimeout:     cfg.HTTPIdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, handler, logger)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Escort API остановлен")
}

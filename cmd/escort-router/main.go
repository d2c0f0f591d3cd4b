// Точка входа Escort Router — входной точки системы Pendataan IGD.
// Выбирает backend (основной или legacy) для каждого запроса
// и проксирует его без изменения контракта.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TheDex-dev/Goravel/internal/config"
	"github.com/TheDex-dev/Goravel/internal/router"
	"github.com/TheDex-dev/Goravel/internal/server"
	"github.com/TheDex-dev/Goravel/internal/service"
)

const serviceName = "escort-router"

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.LoadRouter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Escort Router запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("api_url", cfg.APIURL),
		slog.String("legacy_url", cfg.LegacyURL),
		slog.Bool("go_enabled", cfg.GoEnabled),
		slog.Bool("auto_detect", cfg.AutoDetect),
	)

	// --- Инициализация компонентов ---

	// 1. Проба доступности основного backend
	var probe *router.ProbeCache
	if cfg.AutoDetect {
		probe = router.NewProbeCache(
			router.HTTPProbe(cfg.APIURL, cfg.ProbeTimeout),
			cfg.ProbeCacheTTL,
		)
	}

	// 2. Selector и proxy
	selector := router.NewSelector(cfg.GoEnabled, cfg.AutoDetect, probe)
	proxy, err := router.NewProxy(selector, cfg.APIURL, cfg.LegacyURL, logger)
	if err != nil {
		logger.Error("Ошибка инициализации proxy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. topologymetrics — мониторинг обоих backend
	ctx := context.Background()
	var dephealthSvc *service.DephealthService
	if cfg.DephealthEnabled {
		dephealthSvc, err = service.NewRouterDephealth(
			serviceName,
			cfg.DephealthGroup,
			cfg.APIURL,
			cfg.LegacyURL,
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

	// 4. Маршруты: собственные метрики router отдаются локально,
	// всё остальное проксируется на выбранный backend
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":%q,"version":%q}`, serviceName, config.Version)
	})
	mux.Handle("/", proxy)

	// 5. HTTP-сервер с graceful shutdown
	srv := server.New(server.Options{
		Port:            cfg.Port,
		ReadTimeout:     cfg.HTTPReadTimeout,
		WriteTimeout:    cfg.HTTPWriteTimeout,
		IdleTimeout:     cfg.HTTPIdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, mux, logger)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Escort Router остановлен")
}

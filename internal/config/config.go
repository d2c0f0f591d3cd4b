// Пакет config — загрузка и валидация конфигурации сервисов IGD
// (api-backend, legacy-backend, router) из переменных окружения.
// Все переменные используют префикс IGD_.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит параметры конфигурации backend-сервисов
// (api-backend и legacy-backend используют один и тот же набор).
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration
	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMaxConns int
	DBMinConns int

	// --- Хранилище фотографий ---

	// Каталог для загруженных фотографий сопровождающих
	UploadDir string
	// Максимальный размер декодированного изображения в байтах (по умолчанию 2 MiB)
	MaxImageBytes int64
	// Удалять ли заменённую фотографию при обновлении записи
	DeleteReplacedPhoto bool

	// --- Кэш записей ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Аутентификация ---

	// URL JWKS endpoint внешнего провайдера идентичности.
	// Пустое значение отключает проверку JWT (открытый режим киоска).
	AuthJWKSURL string
	// Ожидаемый issuer JWT (опционально)
	AuthIssuer string

	// --- CORS ---

	// Разрешённый Origin для веб-фронтенда (по умолчанию *)
	CORSOrigin string

	// --- Dephealth ---

	// Включён ли мониторинг зависимостей
	DephealthEnabled bool
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Помечать ли зависимости лейблом isentry=yes
	DephealthIsEntry bool
}

// RouterConfig содержит параметры конфигурации router-сервиса.
type RouterConfig struct {
	// Порт HTTP-сервера (по умолчанию 8000)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// --- Выбор backend ---

	// Базовый URL основного (Go) backend
	APIURL string
	// Базовый URL резервного (legacy) backend
	LegacyURL string
	// Глобальный рубильник: false принудительно направляет всё на legacy
	GoEnabled bool
	// Автоопределение доступности основного backend через health-пробу
	AutoDetect bool
	// Таймаут одной health-пробы (по умолчанию 5s)
	ProbeTimeout time.Duration
	// TTL кэша результата пробы (по умолчанию 60s)
	ProbeCacheTTL time.Duration

	// --- Dephealth ---

	DephealthEnabled       bool
	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool
}

// Load загружает конфигурацию backend-сервиса из переменных окружения.
// defaultPort различает api-backend (8080) и legacy-backend (8081),
// остальные переменные общие.
func Load(defaultPort int) (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// IGD_PORT — порт HTTP-сервера
	cfg.Port, err = getEnvInt("IGD_PORT", defaultPort)
	if err != nil {
		return nil, fmt.Errorf("IGD_PORT: %w", err)
	}

	if err := loadLogging(&cfg.LogLevel, &cfg.LogFormat); err != nil {
		return nil, err
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("IGD_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("IGD_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("IGD_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("IGD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("IGD_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("IGD_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("IGD_DB_PORT: %w", err)
	}
	cfg.DBUser = getEnvDefault("IGD_DB_USER", "postgres")
	// IGD_DB_PASSWORD — обязательная переменная
	cfg.DBPassword, err = getEnvRequired("IGD_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBName = getEnvDefault("IGD_DB_NAME", "escort_db")
	cfg.DBSSLMode = getEnvDefault("IGD_DB_SSLMODE", "disable")
	cfg.DBMaxConns, err = getEnvInt("IGD_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("IGD_DB_MAX_CONNS: %w", err)
	}
	cfg.DBMinConns, err = getEnvInt("IGD_DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("IGD_DB_MIN_CONNS: %w", err)
	}

	// --- Хранилище фотографий ---

	cfg.UploadDir = getEnvDefault("IGD_UPLOAD_DIR", "storage/uploads")
	maxImage, err := getEnvInt("IGD_MAX_IMAGE_SIZE", 2*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("IGD_MAX_IMAGE_SIZE: %w", err)
	}
	if maxImage <= 0 {
		return nil, fmt.Errorf("IGD_MAX_IMAGE_SIZE: значение должно быть > 0")
	}
	cfg.MaxImageBytes = int64(maxImage)
	cfg.DeleteReplacedPhoto, err = getEnvBool("IGD_DELETE_REPLACED_PHOTO", false)
	if err != nil {
		return nil, fmt.Errorf("IGD_DELETE_REPLACED_PHOTO: %w", err)
	}

	// --- Кэш записей ---

	cfg.CacheSize, err = getEnvInt("IGD_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("IGD_CACHE_SIZE: %w", err)
	}
	cfg.CacheTTL, err = getEnvDuration("IGD_CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_CACHE_TTL: %w", err)
	}

	// --- Аутентификация ---

	cfg.AuthJWKSURL = getEnvDefault("IGD_AUTH_JWKS_URL", "")
	cfg.AuthIssuer = getEnvDefault("IGD_AUTH_ISSUER", "")

	// --- CORS ---

	cfg.CORSOrigin = getEnvDefault("IGD_CORS_ORIGIN", "*")

	// --- Dephealth ---

	if err := loadDephealth(&cfg.DephealthEnabled, &cfg.DephealthGroup,
		&cfg.DephealthCheckInterval, &cfg.DephealthIsEntry); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadRouter загружает конфигурацию router-сервиса из переменных окружения.
func LoadRouter() (*RouterConfig, error) {
	cfg := &RouterConfig{}
	var err error

	// IGD_ROUTER_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("IGD_ROUTER_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("IGD_ROUTER_PORT: %w", err)
	}

	if err := loadLogging(&cfg.LogLevel, &cfg.LogFormat); err != nil {
		return nil, err
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("IGD_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("IGD_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("IGD_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("IGD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Выбор backend ---

	cfg.APIURL = strings.TrimRight(getEnvDefault("IGD_ROUTER_API_URL", "http://localhost:8080"), "/")
	cfg.LegacyURL = strings.TrimRight(getEnvDefault("IGD_ROUTER_LEGACY_URL", "http://localhost:8081"), "/")
	cfg.GoEnabled, err = getEnvBool("IGD_ROUTER_GO_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("IGD_ROUTER_GO_ENABLED: %w", err)
	}
	cfg.AutoDetect, err = getEnvBool("IGD_ROUTER_AUTO_DETECT", true)
	if err != nil {
		return nil, fmt.Errorf("IGD_ROUTER_AUTO_DETECT: %w", err)
	}
	cfg.ProbeTimeout, err = getEnvDuration("IGD_ROUTER_PROBE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_ROUTER_PROBE_TIMEOUT: %w", err)
	}
	cfg.ProbeCacheTTL, err = getEnvDuration("IGD_ROUTER_PROBE_CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IGD_ROUTER_PROBE_CACHE_TTL: %w", err)
	}

	if err := loadDephealth(&cfg.DephealthEnabled, &cfg.DephealthGroup,
		&cfg.DephealthCheckInterval, &cfg.DephealthIsEntry); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
		c.DBMaxConns, c.DBMinConns,
	)
}

// MigrateURL возвращает URL подключения для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadLogging загружает общие параметры логирования (IGD_LOG_LEVEL, IGD_LOG_FORMAT).
func loadLogging(level *slog.Level, format *string) error {
	var err error

	*level, err = parseLogLevel(getEnvDefault("IGD_LOG_LEVEL", "info"))
	if err != nil {
		return fmt.Errorf("IGD_LOG_LEVEL: %w", err)
	}

	*format = getEnvDefault("IGD_LOG_FORMAT", "json")
	if *format != "json" && *format != "text" {
		return fmt.Errorf("IGD_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", *format)
	}

	return nil
}

// loadDephealth загружает общие параметры мониторинга зависимостей.
func loadDephealth(enabled *bool, group *string, interval *time.Duration, isEntry *bool) error {
	var err error

	*enabled, err = getEnvBool("IGD_DEPHEALTH_ENABLED", true)
	if err != nil {
		return fmt.Errorf("IGD_DEPHEALTH_ENABLED: %w", err)
	}
	*group = getEnvDefault("IGD_DEPHEALTH_GROUP", "igd")
	*interval, err = getEnvDuration("IGD_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return fmt.Errorf("IGD_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	*isEntry, err = getEnvBool("IGD_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return fmt.Errorf("IGD_DEPHEALTH_ISENTRY: %w", err)
	}

	return nil
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// selector.go — выбор backend для входящего запроса.
// Приоритет: заголовок X-Use-Go-Backend, query-параметр use_go_backend,
// глобальное отключение основного backend, проба доступности, default.
package router

import (
	"net/http"
	"strings"
)

// Backend — целевой backend запроса.
type Backend string

const (
	BackendPrimary Backend = "go"
	BackendLegacy  Backend = "legacy"
)

// Причины выбора backend (значение заголовка X-Backend-Reason
// и метки reason метрики решений).
const (
	ReasonHeaderOverride  = "header_override"
	ReasonQueryOverride   = "query_override"
	ReasonFeatureDisabled = "feature_disabled"
	ReasonProbeOK         = "probe_ok"
	ReasonProbeFailed     = "probe_failed"
	ReasonDefault         = "default"
)

// Decision — решение о маршрутизации одного запроса.
type Decision struct {
	Backend Backend
	Reason  string
	// Forced — выбор навязан клиентом или конфигурацией,
	// fallback на другой backend при ошибке невозможен.
	Forced bool
}

// Selector принимает решение о маршрутизации.
type Selector struct {
	goEnabled  bool
	autoDetect bool
	probe      *ProbeCache
}

// NewSelector создаёт selector.
// probe может быть nil, если autoDetect выключен.
func NewSelector(goEnabled, autoDetect bool, probe *ProbeCache) *Selector {
	return &Selector{
		goEnabled:  goEnabled,
		autoDetect: autoDetect,
		probe:      probe,
	}
}

// Select выбирает backend для запроса.
func (s *Selector) Select(r *http.Request) Decision {
	if v := r.Header.Get("X-Use-Go-Backend"); v != "" {
		return Decision{Backend: backendFor(parseFlag(v)), Reason: ReasonHeaderOverride, Forced: true}
	}

	if v := r.URL.Query().Get("use_go_backend"); v != "" {
		return Decision{Backend: backendFor(parseFlag(v)), Reason: ReasonQueryOverride, Forced: true}
	}

	if !s.goEnabled {
		return Decision{Backend: BackendLegacy, Reason: ReasonFeatureDisabled, Forced: true}
	}

	if s.autoDetect && s.probe != nil {
		if s.probe.Alive(r.Context()) {
			return Decision{Backend: BackendPrimary, Reason: ReasonProbeOK}
		}
		return Decision{Backend: BackendLegacy, Reason: ReasonProbeFailed}
	}

	return Decision{Backend: BackendPrimary, Reason: ReasonDefault}
}

// backendFor транслирует флаг клиента в backend.
func backendFor(useGo bool) Backend {
	if useGo {
		return BackendPrimary
	}
	return BackendLegacy
}

// parseFlag трактует 1/true/yes (без учёта регистра) как true,
// всё остальное — как false.
func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

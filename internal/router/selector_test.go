package router

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

// staticProbe возвращает заранее заданный результат.
func staticProbe(alive bool) *ProbeCache {
	return NewProbeCache(func(ctx context.Context) bool { return alive }, time.Minute)
}

func TestSelector_Priority(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		query       string
		goEnabled   bool
		autoDetect  bool
		probeAlive  bool
		wantBackend Backend
		wantReason  string
		wantForced  bool
	}{
		{
			name:        "заголовок выбирает go",
			header:      "true",
			goEnabled:   true,
			wantBackend: BackendPrimary,
			wantReason:  ReasonHeaderOverride,
			wantForced:  true,
		},
		{
			name:        "заголовок выбирает legacy",
			header:      "false",
			goEnabled:   true,
			wantBackend: BackendLegacy,
			wantReason:  ReasonHeaderOverride,
			wantForced:  true,
		},
		{
			name:        "заголовок важнее query",
			header:      "false",
			query:       "use_go_backend=true",
			goEnabled:   true,
			wantBackend: BackendLegacy,
			wantReason:  ReasonHeaderOverride,
			wantForced:  true,
		},
		{
			name:        "query выбирает go",
			query:       "use_go_backend=1",
			goEnabled:   true,
			wantBackend: BackendPrimary,
			wantReason:  ReasonQueryOverride,
			wantForced:  true,
		},
		{
			name:        "query выбирает legacy",
			query:       "use_go_backend=0",
			goEnabled:   true,
			wantBackend: BackendLegacy,
			wantReason:  ReasonQueryOverride,
			wantForced:  true,
		},
		{
			name:        "go выключен глобально",
			goEnabled:   false,
			wantBackend: BackendLegacy,
			wantReason:  ReasonFeatureDisabled,
			wantForced:  true,
		},
		{
			name:        "заголовок важнее глобального отключения",
			header:      "yes",
			goEnabled:   false,
			wantBackend: BackendPrimary,
			wantReason:  ReasonHeaderOverride,
			wantForced:  true,
		},
		{
			name:        "проба успешна",
			goEnabled:   true,
			autoDetect:  true,
			probeAlive:  true,
			wantBackend: BackendPrimary,
			wantReason:  ReasonProbeOK,
		},
		{
			name:        "проба провалена",
			goEnabled:   true,
			autoDetect:  true,
			probeAlive:  false,
			wantBackend: BackendLegacy,
			wantReason:  ReasonProbeFailed,
		},
		{
			name:        "без автодетекта выбирается go",
			goEnabled:   true,
			autoDetect:  false,
			wantBackend: BackendPrimary,
			wantReason:  ReasonDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.goEnabled, tt.autoDetect, staticProbe(tt.probeAlive))

			target := "/api/escort"
			if tt.query != "" {
				target += "?" + tt.query
			}
			r := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				r.Header.Set("X-Use-Go-Backend", tt.header)
			}

			d := s.Select(r)
			if d.Backend != tt.wantBackend {
				t.Errorf("ожидался backend %s, получен %s", tt.wantBackend, d.Backend)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("ожидалась причина %s, получена %s", tt.wantReason, d.Reason)
			}
			if d.Forced != tt.wantForced {
				t.Errorf("ожидается Forced=%v, получено %v", tt.wantForced, d.Forced)
			}
		})
	}
}

func TestParseFlag(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", "yes", " Yes "}
	for _, v := range truthy {
		if !parseFlag(v) {
			t.Errorf("значение %q должно трактоваться как true", v)
		}
	}

	falsy := []string{"0", "false", "no", "", "abc"}
	for _, v := range falsy {
		if parseFlag(v) {
			t.Errorf("значение %q должно трактоваться как false", v)
		}
	}
}

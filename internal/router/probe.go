// probe.go — проба доступности основного backend с кэшированием.
// Результат пробы кэшируется на TTL, чтобы не дёргать /api/health
// на каждом запросе.
package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var probesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "igd_router_probes_total",
		Help: "Выполненные пробы основного backend по результату.",
	},
	[]string{"result"},
)

// ProbeFunc проверяет доступность backend. true — backend жив.
type ProbeFunc func(ctx context.Context) bool

// ProbeCache кэширует результат пробы на TTL.
// Потокобезопасен: конкурирующие запросы получают кэшированное значение,
// пробу выполняет тот, кто первым обнаружил устаревание.
type ProbeCache struct {
	mu        sync.Mutex
	probe     ProbeFunc
	ttl       time.Duration
	now       func() time.Time
	alive     bool
	checkedAt time.Time
}

// NewProbeCache создаёт кэш пробы с заданным TTL.
func NewProbeCache(probe ProbeFunc, ttl time.Duration) *ProbeCache {
	return &ProbeCache{
		probe: probe,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Alive возвращает доступность backend: кэшированное значение, если оно
// ещё не устарело, иначе выполняет пробу и обновляет кэш.
func (c *ProbeCache) Alive(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.ttl {
		return c.alive
	}

	c.alive = c.probe(ctx)
	c.checkedAt = c.now()
	if c.alive {
		probesTotal.WithLabelValues("alive").Inc()
	} else {
		probesTotal.WithLabelValues("dead").Inc()
	}
	return c.alive
}

// Invalidate сбрасывает кэш: следующий вызов Alive выполнит пробу.
func (c *ProbeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkedAt = time.Time{}
}

// HTTPProbe возвращает пробу GET <baseURL>/api/health.
// Backend считается живым при любом 2xx-ответе в пределах timeout.
func HTTPProbe(baseURL string, timeout time.Duration) ProbeFunc {
	client := &http.Client{Timeout: timeout}
	target := fmt.Sprintf("%s/api/health", baseURL)

	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return false
		}

		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode >= 200 && resp.StatusCode < 300
	}
}

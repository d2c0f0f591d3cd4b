// proxy.go — reverse proxy, направляющий запросы на выбранный backend.
// Каждый ответ помечается заголовками X-Served-By и X-Backend-Reason,
// решения считаются в метрике igd_router_decisions_total.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var routerDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "igd_router_decisions_total",
		Help: "Решения о маршрутизации по backend и причине.",
	},
	[]string{"backend", "reason"},
)

type ctxKey int

const ctxKeyDecision ctxKey = iota

// Proxy направляет запросы на основной или legacy backend
// по решению selector.
type Proxy struct {
	selector *Selector
	primary  *httputil.ReverseProxy
	legacy   *httputil.ReverseProxy
	logger   *slog.Logger
}

// NewProxy создаёт proxy для пары backend.
func NewProxy(selector *Selector, primaryURL, legacyURL string, logger *slog.Logger) (*Proxy, error) {
	pu, err := url.Parse(primaryURL)
	if err != nil {
		return nil, err
	}
	lu, err := url.Parse(legacyURL)
	if err != nil {
		return nil, err
	}

	p := &Proxy{
		selector: selector,
		logger:   logger.With(slog.String("component", "router-proxy")),
	}
	p.primary = p.newReverseProxy(pu)
	p.legacy = p.newReverseProxy(lu)
	return p, nil
}

// newReverseProxy создаёт reverse proxy на один backend.
// ReverseProxy сам добавляет X-Forwarded-For.
func (p *Proxy) newReverseProxy(target *url.URL) *httputil.ReverseProxy {
	rp := httputil.NewSingleHostReverseProxy(target)

	rp.ModifyResponse = func(resp *http.Response) error {
		if d, ok := resp.Request.Context().Value(ctxKeyDecision).(Decision); ok {
			resp.Header.Set("X-Served-By", string(d.Backend))
			resp.Header.Set("X-Backend-Reason", d.Reason)
		}
		return nil
	}

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		d, _ := r.Context().Value(ctxKeyDecision).(Decision)
		p.logger.Error("backend недоступен",
			slog.String("backend", string(d.Backend)),
			slog.String("reason", d.Reason),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeBadGateway(w, d)
	}

	return rp
}

// ServeHTTP выбирает backend и проксирует запрос.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	decision := p.selector.Select(r)
	routerDecisionsTotal.WithLabelValues(string(decision.Backend), decision.Reason).Inc()

	decisionID := uuid.NewString()
	p.logger.Info("решение о маршрутизации",
		slog.String("decision_id", decisionID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("backend", string(decision.Backend)),
		slog.String("reason", decision.Reason),
	)

	r = r.WithContext(context.WithValue(r.Context(), ctxKeyDecision, decision))

	if decision.Backend == BackendPrimary {
		p.primary.ServeHTTP(w, r)
		return
	}
	p.legacy.ServeHTTP(w, r)
}

// writeBadGateway пишет 502 в конверте контракта.
// Заголовки решения проставляются и на ошибочный ответ.
func writeBadGateway(w http.ResponseWriter, d Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Served-By", string(d.Backend))
	w.Header().Set("X-Backend-Reason", d.Reason)
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(`{"status":"error","message":"Backend unavailable"}`))
}

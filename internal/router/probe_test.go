package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock — управляемое время для проверки TTL.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProbeCache_CachesWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	calls := 0
	cache := NewProbeCache(func(ctx context.Context) bool {
		calls++
		return true
	}, 60*time.Second)
	cache.now = clock.now

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if !cache.Alive(ctx) {
			t.Fatalf("ожидался живой backend")
		}
	}

	if calls != 1 {
		t.Errorf("ожидался 1 вызов пробы в пределах TTL, получено %d", calls)
	}
}

func TestProbeCache_RefreshAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	calls := 0
	results := []bool{true, false}
	cache := NewProbeCache(func(ctx context.Context) bool {
		r := results[calls]
		calls++
		return r
	}, 60*time.Second)
	cache.now = clock.now

	ctx := context.Background()
	if !cache.Alive(ctx) {
		t.Fatalf("ожидался живой backend при первой пробе")
	}

	clock.advance(61 * time.Second)
	if cache.Alive(ctx) {
		t.Errorf("ожидалась повторная проба после истечения TTL")
	}
	if calls != 2 {
		t.Errorf("ожидалось 2 вызова пробы, получено %d", calls)
	}
}

func TestProbeCache_Invalidate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	calls := 0
	cache := NewProbeCache(func(ctx context.Context) bool {
		calls++
		return true
	}, 60*time.Second)
	cache.now = clock.now

	ctx := context.Background()
	cache.Alive(ctx)
	cache.Invalidate()
	cache.Alive(ctx)

	if calls != 2 {
		t.Errorf("ожидалась проба после Invalidate, вызовов: %d", calls)
	}
}

func TestHTTPProbe(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"здоровый backend", http.StatusOK, true},
		{"деградировавший backend", http.StatusServiceUnavailable, false},
		{"редирект не считается живым", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			probe := HTTPProbe(srv.URL, 2*time.Second)
			if got := probe(context.Background()); got != tt.want {
				t.Errorf("ожидается %v, получено %v", tt.want, got)
			}
			if gotPath != "/api/health" {
				t.Errorf("ожидался запрос /api/health, получен %s", gotPath)
			}
		})
	}
}

func TestHTTPProbe_Unreachable(t *testing.T) {
	probe := HTTPProbe("http://127.0.0.1:1", 500*time.Millisecond)
	if probe(context.Background()) {
		t.Errorf("недоступный адрес не должен считаться живым")
	}
}

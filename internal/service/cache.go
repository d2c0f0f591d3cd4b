// CacheService — LRU-кэш записей о сопровождающих с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/TheDex-dev/Goravel/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igd_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igd_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей.",
	})
)

// CacheService — LRU-кэш записей по ID с автоматическим TTL.
// Каждый экземпляр backend имеет собственный in-memory кэш,
// инвалидация выполняется при любой мутации записи.
type CacheService struct {
	cache *expirable.LRU[int64, *model.Escort]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[int64, *model.Escort](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает запись из кэша по ID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
func (c *CacheService) Get(id int64) (*model.Escort, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(id int64, e *model.Escort) {
	c.cache.Add(id, e)
}

// Delete удаляет запись из кэша (инвалидация при мутации).
func (c *CacheService) Delete(id int64) {
	c.cache.Remove(id)
}

package exchange

import (
	"context"
	"sync"
	"time"
	"trade_guard/pkg/logger"
)

const DefaultPrecision int32 = 3

type PrecisionSource interface {
	QuantityPrecision(ctx context.Context, symbol string) (int32, error)
}

type precisionEntry struct {
	digits    int32
	fetchedAt time.Time
}

// PrecisionResolver кеширует точность количества по символу.
// Ошибка lookup не валит сделку: отдаём def и не кешируем его.
type PrecisionResolver struct {
	src PrecisionSource
	def int32
	ttl time.Duration // 0 => без обновления
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]precisionEntry
}

func NewPrecisionResolver(src PrecisionSource, def int32, ttl time.Duration) *PrecisionResolver {
	if def < 0 {
		def = DefaultPrecision
	}
	return &PrecisionResolver{
		src:     src,
		def:     def,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]precisionEntry),
	}
}

func (r *PrecisionResolver) Resolve(ctx context.Context, symbol string) int32 {
	r.mu.RLock()
	e, ok := r.entries[symbol]
	r.mu.RUnlock()
	if ok && (r.ttl <= 0 || r.now().Sub(e.fetchedAt) < r.ttl) {
		return e.digits
	}

	digits, err := r.src.QuantityPrecision(ctx, symbol)
	if err != nil || digits < 0 {
		if ok {
			logger.Warn("[PRECISION] %s refresh failed, keep cached %d: %v", symbol, e.digits, err)
			return e.digits
		}
		logger.Warn("[PRECISION] %s lookup failed, fallback %d: %v", symbol, r.def, err)
		return r.def
	}

	r.mu.Lock()
	r.entries[symbol] = precisionEntry{digits: digits, fetchedAt: r.now()}
	r.mu.Unlock()
	return digits
}

// Cached: значение из кеша без запроса к бирже.
func (r *PrecisionResolver) Cached(symbol string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[symbol]
	return e.digits, ok
}

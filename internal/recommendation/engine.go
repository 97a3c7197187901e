package recommendation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"innsight/backend/internal/cache"
	"innsight/backend/internal/domain"
)

// minFrequency is the inclusion bar: a product must have been ordered more
// than once before it can be recommended for reorder.
const minFrequency = 2

// Engine runs the reorder pipeline over a guest's delivered order history.
// Analysis is a pure function of the order snapshot and the clock; the
// engine only adds a short-TTL cache in front of it.
type Engine struct {
	cache    cache.RecommendationCache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewEngine(cacheStore cache.RecommendationCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopRecommendationCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// WithClock overrides the engine's time source. Tests use this to pin
// daysSinceLastOrder and urgency to a fixed reference.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// Recommendations returns the analyzed, score-sorted qualifying set for one
// guest, serving from cache when an identical order snapshot was analyzed
// within the TTL.
func (e *Engine) Recommendations(ctx context.Context, guestID string, orders []domain.OrderRecord) domain.RecommendationList {
	key := buildCacheKey(guestID, orders)
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return *cached
	}

	list := Analyze(orders, e.now().UTC())
	_ = e.cache.Set(ctx, key, &list, e.cacheTTL)
	return list
}

// Analyze runs the full pipeline (normalize, aggregate, score, rank) from
// scratch against an immutable order snapshot. Calling it twice with the
// same input and now yields identical output.
func Analyze(orders []domain.OrderRecord, now time.Time) domain.RecommendationList {
	facts := flattenOrders(orders)
	aggregates := buildAggregates(facts, now)

	qualifying := make([]domain.ProductAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		if agg.Frequency < minFrequency {
			continue
		}
		qualifying = append(qualifying, *agg)
	}

	sortAggregates(qualifying, SortByScore)

	return domain.RecommendationList{
		Items:       qualifying,
		Stats:       summarize(qualifying),
		GeneratedAt: now,
	}
}

// buildCacheKey hashes the guest id and the identity of the order snapshot
// so a newly delivered order invalidates the cached analysis immediately.
func buildCacheKey(guestID string, orders []domain.OrderRecord) string {
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids)+2)
	parts = append(parts, guestID, fmt.Sprintf("n:%d", len(orders)))
	parts = append(parts, ids...)

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "innsight:recommendations:" + hex.EncodeToString(hash[:])
}

package cache

import (
	"context"
	"time"

	"innsight/backend/internal/domain"
)

type RecommendationCache interface {
	Get(ctx context.Context, key string) (*domain.RecommendationList, bool, error)
	Set(ctx context.Context, key string, value *domain.RecommendationList, ttl time.Duration) error
}

type NoopRecommendationCache struct{}

func (NoopRecommendationCache) Get(_ context.Context, _ string) (*domain.RecommendationList, bool, error) {
	return nil, false, nil
}

func (NoopRecommendationCache) Set(_ context.Context, _ string, _ *domain.RecommendationList, _ time.Duration) error {
	return nil
}

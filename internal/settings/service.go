// Package settings serves platform constants (fee rates, minimums, exchange
// rate, withdrawal window) with a short-lived Redis cache in front of the
// database row.
package settings

import (
	"context"
	"time"

	"investa/internal/domain"
	"investa/pkg/cache"
	"investa/pkg/errors"
	"investa/pkg/logger"
)

const cacheKey = "platform:settings"

type Service struct {
	repo   Repository
	cache  *cache.RedisCache
	ttl    time.Duration
	logger logger.Logger
}

// NewService builds a settings service. cache may be nil; lookups then go
// straight to the repository.
func NewService(repo Repository, c *cache.RedisCache, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: log,
	}
}

func (s *Service) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	if s.cache != nil {
		var cached domain.PlatformSettings
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if err != cache.ErrMiss {
			s.logger.Warn("settings cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load settings")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, settings, s.ttl); err != nil {
			s.logger.Warn("settings cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return settings, nil
}

// Update persists new settings and invalidates the cache.
func (s *Service) Update(ctx context.Context, settings *domain.PlatformSettings) error {
	if err := s.repo.Update(ctx, settings); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			s.logger.Warn("settings cache invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	s.logger.Info("platform settings updated", nil)
	return nil
}

type Repository interface {
	Get(ctx context.Context) (*domain.PlatformSettings, error)
	Update(ctx context.Context, settings *domain.PlatformSettings) error
}

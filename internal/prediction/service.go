package prediction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/ranking"
)

// ServiceConfig holds configuration for the prediction service.
type ServiceConfig struct {
	// Provider is the delay predictor.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache forecasts (default: 2 minutes).
	// Delay forecasts go stale faster than baseline estimates.
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale forecasts on provider errors
	// (default: 10 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service provides delay forecasts with caching and a neutral fallback.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedForecast
	lastCleanup time.Time
}

type cachedForecast struct {
	forecast  *Forecast
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new prediction service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 2 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 10 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedForecast),
	}
}

// Forecast returns the expected delay for a route. Uses cached data
// if available and not expired.
func (s *Service) Forecast(ctx context.Context, req Request) (*Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for forecast")
		return cached.forecast, nil
	}
	s.mu.RUnlock()

	return s.fetchForecast(ctx, req, cacheKey)
}

// ForecastOrDefault returns an adjustment for the route, substituting
// a neutral zero-delay adjustment when the provider fails or has no
// data. The comparison pipeline relies on this never returning an
// error.
func (s *Service) ForecastOrDefault(ctx context.Context, req Request) ranking.Adjustment {
	forecast, err := s.Forecast(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("route_id", req.RouteID).
			Str("mode", string(req.Mode)).
			Msg("forecast unavailable, using neutral adjustment")
		return ranking.DefaultAdjustment("none")
	}
	return forecast.Adjustment()
}

// fetchForecast fetches a forecast from the provider and updates the cache.
func (s *Service) fetchForecast(ctx context.Context, req Request, cacheKey string) (*Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		return cached.forecast, nil
	}

	s.logger.Debug().
		Str("route_id", req.RouteID).
		Str("mode", string(req.Mode)).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	forecast, err := s.provider.Forecast(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("route_id", req.RouteID).
			Msg("failed to fetch forecast")

		// Stale-if-error: keep answering from an expired entry for a while.
		if cached, ok := s.cache[cacheKey]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale forecast due to provider error")
				return cached.forecast, nil
			}
		}

		return nil, err
	}

	now := time.Now()
	s.cache[cacheKey] = &cachedForecast{
		forecast:  forecast,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.cleanupIfNeeded()

	return forecast, nil
}

// cacheKey is route-keyed: forecasts apply to a whole line, not a leg.
func (s *Service) cacheKey(req Request) string {
	return fmt.Sprintf("%s:%s", req.Mode, req.RouteID)
}

// cleanupIfNeeded removes entries past the stale-if-error window.
// Caller must hold the write lock.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired forecast cache entries")
	}
}

// InvalidateCache clears all cached forecasts.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedForecast)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

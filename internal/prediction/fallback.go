package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// FallbackProvider tries providers in order until one answers. A
// provider that returns ErrNoData, ErrProviderUnavailable or
// ErrRateLimitExceeded passes the request to the next one; any other
// error stops the chain.
type FallbackProvider struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewFallbackProvider creates a provider chain. At least one provider
// is required.
func NewFallbackProvider(logger zerolog.Logger, providers ...Provider) *FallbackProvider {
	return &FallbackProvider{
		providers: providers,
		logger:    logger,
	}
}

// Name returns the chained provider names joined with "+".
func (f *FallbackProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Forecast implements Provider.
func (f *FallbackProvider) Forecast(ctx context.Context, req Request) (*Forecast, error) {
	if len(f.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrProviderUnavailable)
	}

	var lastErr error
	for _, p := range f.providers {
		forecast, err := p.Forecast(ctx, req)
		if err == nil {
			return forecast, nil
		}

		if !fallthroughError(err) {
			return nil, err
		}

		f.logger.Debug().Err(err).
			Str("provider", p.Name()).
			Str("route_id", req.RouteID).
			Msg("provider passed, trying next")
		lastErr = err
	}

	return nil, lastErr
}

func fallthroughError(err error) bool {
	return errors.Is(err, ErrNoData) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrRateLimitExceeded)
}

// Package prediction provides delay forecasts for transit routes. A
// Provider produces a Forecast for a route; the Service caches
// forecasts and falls back to a neutral adjustment when no provider
// can answer, so that a slow or broken predictor never blocks a
// comparison.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

// Sentinel errors for prediction providers.
var (
	// ErrProviderUnavailable indicates the predictor could not be reached.
	ErrProviderUnavailable = errors.New("prediction provider unavailable")

	// ErrNoData indicates the provider has no observations for the route.
	ErrNoData = errors.New("no delay data for route")

	// ErrRateLimitExceeded indicates the upstream API rate limit was hit.
	ErrRateLimitExceeded = errors.New("prediction provider rate limit exceeded")

	// ErrInvalidRequest indicates the forecast request failed validation.
	ErrInvalidRequest = errors.New("invalid forecast request")
)

// Provider is the interface implemented by delay predictors.
type Provider interface {
	// Forecast returns the expected delay for the requested route.
	// Returns ErrNoData when the provider has nothing to say about
	// the route.
	Forecast(ctx context.Context, req Request) (*Forecast, error)

	// Name returns the provider's identifier for logging.
	Name() string
}

// Request describes a single forecast lookup.
type Request struct {
	Mode    ranking.Mode
	RouteID string
	Origin  directions.Location
	At      time.Time
}

// Validate checks that the request can be forecast.
func (r Request) Validate() error {
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidRequest, r.Mode)
	}
	if r.Mode == ranking.ModeTransit && r.RouteID == "" {
		return fmt.Errorf("%w: transit forecast requires a route id", ErrInvalidRequest)
	}
	return nil
}

// Forecast is a delay prediction for a route at a point in time.
type Forecast struct {
	Mode         ranking.Mode
	RouteID      string
	DelaySeconds float64
	Confidence   float64
	Source       string
	SampleCount  int
	GeneratedAt  time.Time
}

// Adjustment converts the forecast into a ranking adjustment.
func (f *Forecast) Adjustment() ranking.Adjustment {
	return ranking.Adjustment{
		DeltaSeconds: f.DelaySeconds,
		Confidence:   f.Confidence,
		Source:       f.Source,
	}
}

// Error wraps provider-specific failures with context about which
// provider failed.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the operation may succeed on retry.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

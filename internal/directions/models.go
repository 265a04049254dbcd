// Package directions provides baseline travel estimates per mode.
package directions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sfmobility/sfmobility/internal/ranking"
)

// Sentinel errors for directions operations.
var (
	// ErrProviderUnavailable indicates the directions provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("directions provider unavailable")
	// ErrNoRouteFound indicates no viable route exists for the requested mode.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidLocation indicates the provided coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrUnsupportedMode indicates the provider cannot estimate the requested mode.
	ErrUnsupportedMode = errors.New("unsupported travel mode")
)

// Provider defines the interface for baseline travel-time providers.
type Provider interface {
	// GetEstimate computes a baseline estimate for one mode between two points.
	GetEstimate(ctx context.Context, req Request) (*Estimate, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedModes returns the travel modes this provider can estimate.
	SupportedModes() []ranking.Mode
}

// Location is a geographic point, optionally with a display name.
type Location struct {
	Lat  float64
	Lon  float64
	Name string
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidLocation, l.Lat)
	}
	if math.IsNaN(l.Lon) || l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidLocation, l.Lon)
	}
	return nil
}

// Request asks for a baseline estimate for one mode.
type Request struct {
	Origin      Location
	Destination Location
	Mode        ranking.Mode
}

// Estimate is a baseline travel option before any predicted adjustment.
type Estimate struct {
	Mode ranking.Mode

	DurationSeconds int
	CostCents       int
	DistanceMeters  int

	// RouteID identifies the transit line when known (e.g. "38").
	RouteID string

	// GeometryPolyline is the route geometry, encoded at precision 5.
	GeometryPolyline string

	Provider  string
	FetchedAt time.Time
}

// Option converts the estimate into a rankable mode option.
func (e *Estimate) Option() ranking.ModeOption {
	return ranking.ModeOption{
		Mode:                    e.Mode,
		BaselineDurationSeconds: e.DurationSeconds,
		BaselineCostCents:       e.CostCents,
		RouteID:                 e.RouteID,
	}
}

// Error provides detailed error information from a directions provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

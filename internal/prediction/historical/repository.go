// Package historical predicts transit delays from stored delay
// observations. The worker writes observations as it polls the
// realtime feed; the predictor reads per-route aggregates and turns
// them into forecasts.
package historical

import (
	"context"
	"errors"
	"time"
)

// ErrObservationNotFound indicates no observations match the query.
var ErrObservationNotFound = errors.New("observation not found")

// Observation is one recorded delay sample for a route.
type Observation struct {
	ID           string
	RouteID      string
	VehicleID    string
	DelaySeconds float64
	Lat          float64
	Lon          float64
	RecordedAt   time.Time
}

// RouteStats aggregates a route's observations over a window.
type RouteStats struct {
	RouteID            string
	SampleCount        int
	MeanDelaySeconds   float64
	StdDevDelaySeconds float64
	LastObservedAt     time.Time
}

// Repository defines the interface for observation persistence.
type Repository interface {
	// Insert stores a batch of observations.
	Insert(ctx context.Context, observations []Observation) error

	// Stats returns aggregate delay statistics for a route since the
	// given time. A route with no samples returns a zero-count
	// RouteStats, not an error.
	Stats(ctx context.Context, routeID string, since time.Time) (*RouteStats, error)

	// Prune deletes observations recorded before the given time and
	// returns the number removed.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

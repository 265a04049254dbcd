// Package heuristic provides an offline baseline estimator used when no
// external mapping provider is configured. Estimates are derived from
// straight-line distance with per-mode speed, overhead, and cost tables
// tuned for San Francisco.
package heuristic

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/ranking"
	"github.com/sfmobility/sfmobility/pkg/polyline"
)

// ProviderName identifies this directions provider.
const ProviderName = "heuristic"

// detourFactor inflates straight-line distance to approximate street-grid
// routing.
const detourFactor = 1.3

// modeParams holds the per-mode estimation constants.
type modeParams struct {
	// speedMetersPerSecond is the effective door-to-door speed, including
	// stops for transit and traffic for driving.
	speedMetersPerSecond float64

	// overheadSeconds is fixed time not spent moving: boarding wait for
	// transit, parking search for driving, locking up for bikes.
	overheadSeconds int

	// flatFareCents is a fixed cost per trip (Muni fare, parking).
	flatFareCents int

	// centsPerKilometer is distance-proportional cost (fuel).
	centsPerKilometer int
}

// params are rough San Francisco figures: Muni averages ~8 mph with stops,
// downtown driving ~18 mph plus an 8 minute parking search at ~$15.
var params = map[ranking.Mode]modeParams{
	ranking.ModeTransit: {
		speedMetersPerSecond: 3.6,
		overheadSeconds:      300,
		flatFareCents:        250,
	},
	ranking.ModeDriving: {
		speedMetersPerSecond: 8.0,
		overheadSeconds:      480,
		flatFareCents:        1500,
		centsPerKilometer:    12,
	},
	ranking.ModeWalking: {
		speedMetersPerSecond: 1.35,
	},
	ranking.ModeBiking: {
		speedMetersPerSecond: 4.2,
		overheadSeconds:      60,
	},
}

// transitRoute attributes a trip to a Muni line by its dominant
// bearing: east-west trips ride the 38 Geary corridor, north-south
// trips the 14 Mission, diagonal trips the N Judah. The attribution
// is deterministic so repeated comparisons forecast the same line.
func transitRoute(origin, destination directions.Location) string {
	dLat := math.Abs(destination.Lat - origin.Lat)
	dLon := math.Abs(destination.Lon - origin.Lon)
	switch {
	case dLon >= 2*dLat:
		return "38"
	case dLat >= 2*dLon:
		return "14"
	default:
		return "N"
	}
}

// Provider estimates baselines without any network dependency.
type Provider struct {
	logger zerolog.Logger
}

// NewProvider creates a new heuristic provider.
func NewProvider(logger zerolog.Logger) *Provider {
	return &Provider{logger: logger}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// SupportedModes returns the supported travel modes.
func (p *Provider) SupportedModes() []ranking.Mode {
	return []ranking.Mode{
		ranking.ModeTransit,
		ranking.ModeDriving,
		ranking.ModeWalking,
		ranking.ModeBiking,
	}
}

// GetEstimate computes a baseline estimate from straight-line distance.
func (p *Provider) GetEstimate(_ context.Context, req directions.Request) (*directions.Estimate, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      directions.ErrInvalidLocation,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      directions.ErrInvalidLocation,
		}
	}

	mp, ok := params[req.Mode]
	if !ok {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_MODE",
			Message:  "no estimation parameters for mode " + string(req.Mode),
			Err:      directions.ErrUnsupportedMode,
		}
	}

	line := []polyline.Coordinate{
		{Lat: req.Origin.Lat, Lon: req.Origin.Lon},
		{Lat: req.Destination.Lat, Lon: req.Destination.Lon},
	}
	distance := polyline.Length(line) * detourFactor

	duration := int(math.Round(distance/mp.speedMetersPerSecond)) + mp.overheadSeconds
	cost := mp.flatFareCents + mp.centsPerKilometer*int(math.Round(distance/1000))

	routeID := ""
	if req.Mode == ranking.ModeTransit {
		routeID = transitRoute(req.Origin, req.Destination)
	}

	p.logger.Debug().
		Str("mode", string(req.Mode)).
		Int("distance_m", int(distance)).
		Int("duration_s", duration).
		Msg("computed heuristic estimate")

	return &directions.Estimate{
		Mode:             req.Mode,
		DurationSeconds:  duration,
		CostCents:        cost,
		DistanceMeters:   int(math.Round(distance)),
		RouteID:          routeID,
		GeometryPolyline: polyline.Encode(line),
		Provider:         ProviderName,
		FetchedAt:        time.Now(),
	}, nil
}

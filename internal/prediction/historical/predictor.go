package historical

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/prediction"
)

const (
	// ProviderName identifies this prediction provider.
	ProviderName = "historical"

	// DefaultLookback is how far back to aggregate observations.
	DefaultLookback = 7 * 24 * time.Hour

	// DefaultDelaySeconds is the prior used for routes with no
	// observations: Muni buses average about three and a half
	// minutes late.
	DefaultDelaySeconds = 210

	// Predicted delays are clamped to this window.
	minDelaySeconds = -600
	maxDelaySeconds = 3600
)

// PredictorConfig holds configuration for the historical predictor.
type PredictorConfig struct {
	// Repository holds recorded delay observations (required).
	Repository Repository

	// Lookback is the aggregation window (optional, defaults to 7 days).
	Lookback time.Duration

	// Logger for predictor operations.
	Logger zerolog.Logger
}

// Predictor forecasts delays from a route's recent delay history.
type Predictor struct {
	repo     Repository
	lookback time.Duration
	logger   zerolog.Logger
}

// NewPredictor creates a new historical predictor.
func NewPredictor(cfg PredictorConfig) *Predictor {
	lookback := cfg.Lookback
	if lookback == 0 {
		lookback = DefaultLookback
	}

	return &Predictor{
		repo:     cfg.Repository,
		lookback: lookback,
		logger:   cfg.Logger,
	}
}

// Name returns the provider name.
func (p *Predictor) Name() string {
	return ProviderName
}

// Forecast implements prediction.Provider. Routes without recorded
// observations get the default prior at low confidence rather than an
// error, so a cold database still produces usable comparisons.
func (p *Predictor) Forecast(ctx context.Context, req prediction.Request) (*prediction.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	stats, err := p.repo.Stats(ctx, req.RouteID, at.Add(-p.lookback))
	if err != nil {
		return nil, &prediction.Error{
			Provider: ProviderName,
			Code:     "STATS_FAILED",
			Message:  "failed to load delay statistics",
			Err:      prediction.ErrProviderUnavailable,
		}
	}

	if stats.SampleCount == 0 {
		p.logger.Debug().
			Str("route_id", req.RouteID).
			Msg("no observations for route, using default prior")

		return &prediction.Forecast{
			Mode:         req.Mode,
			RouteID:      req.RouteID,
			DelaySeconds: DefaultDelaySeconds,
			Confidence:   0.2,
			Source:       ProviderName,
			SampleCount:  0,
			GeneratedAt:  time.Now(),
		}, nil
	}

	delay := math.Max(minDelaySeconds, math.Min(maxDelaySeconds, stats.MeanDelaySeconds))

	return &prediction.Forecast{
		Mode:         req.Mode,
		RouteID:      req.RouteID,
		DelaySeconds: delay,
		Confidence:   confidence(stats),
		Source:       ProviderName,
		SampleCount:  stats.SampleCount,
		GeneratedAt:  time.Now(),
	}, nil
}

// confidence grows with sample count and shrinks with dispersion. A
// route with many consistent observations approaches 0.95; a route
// with few or wildly varying ones stays near the floor.
func confidence(stats *RouteStats) float64 {
	sampleConf := float64(stats.SampleCount) / float64(stats.SampleCount+10)

	// A five minute standard deviation halves the dispersion factor.
	dispersion := 1.0 / (1.0 + stats.StdDevDelaySeconds/300)

	conf := sampleConf * dispersion
	if conf < 0.2 {
		conf = 0.2
	}
	return math.Min(conf, 0.95)
}

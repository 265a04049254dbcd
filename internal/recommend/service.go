package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

// EstimateGetter provides baseline estimates per mode.
type EstimateGetter interface {
	GetEstimate(ctx context.Context, req directions.Request) (*directions.Estimate, error)
}

// Forecaster provides delay adjustments. Implementations must return
// a neutral adjustment on failure rather than an error.
type Forecaster interface {
	ForecastOrDefault(ctx context.Context, req prediction.Request) ranking.Adjustment
}

// ServiceConfig holds configuration for the recommendation service.
type ServiceConfig struct {
	// Directions provides baseline estimates (required).
	Directions EstimateGetter

	// Prediction provides delay adjustments (required).
	Prediction Forecaster

	// Policy is the default ranking policy. Zero value ranks by time.
	Policy ranking.Policy

	// LookupTimeout bounds each per-mode lookup (default: 5 seconds).
	LookupTimeout time.Duration

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service runs comparisons.
type Service struct {
	directions    EstimateGetter
	prediction    Forecaster
	policy        ranking.Policy
	lookupTimeout time.Duration
	logger        zerolog.Logger
}

// NewService creates a new recommendation service.
func NewService(cfg ServiceConfig) *Service {
	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout == 0 {
		lookupTimeout = 5 * time.Second
	}

	return &Service{
		directions:    cfg.Directions,
		prediction:    cfg.Prediction,
		policy:        cfg.Policy,
		lookupTimeout: lookupTimeout,
		logger:        cfg.Logger,
	}
}

// modeResult carries one mode's lookup outcome across the fan-out.
type modeResult struct {
	estimate   *directions.Estimate
	adjustment ranking.Adjustment
	err        error
}

// Compare gathers estimates and forecasts for each requested mode
// concurrently and ranks the survivors. Modes whose baseline lookup
// fails are omitted from the ranking, not substituted. Candidate
// order follows the request's mode order so repeated calls with the
// same inputs rank identically.
func (s *Service) Compare(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	results := make([]modeResult, len(req.Modes))

	var wg sync.WaitGroup
	for i, mode := range req.Modes {
		wg.Add(1)
		go func(i int, mode ranking.Mode) {
			defer wg.Done()
			results[i] = s.lookupMode(ctx, req, mode)
		}(i, mode)
	}
	wg.Wait()

	candidates := make([]ranking.Candidate, 0, len(req.Modes))
	details := make([]ModeDetail, 0, len(req.Modes))
	var omitted []OmittedMode

	for i, mode := range req.Modes {
		res := results[i]
		if res.err != nil {
			s.logger.Warn().Err(res.err).
				Str("mode", string(mode)).
				Msg("omitting mode from comparison")
			omitted = append(omitted, OmittedMode{
				Mode:   mode,
				Reason: res.err.Error(),
			})
			continue
		}

		candidates = append(candidates, ranking.Candidate{
			Option:     res.estimate.Option(),
			Adjustment: res.adjustment,
		})
		details = append(details, ModeDetail{
			Mode:             mode,
			RouteID:          res.estimate.RouteID,
			DistanceMeters:   res.estimate.DistanceMeters,
			GeometryPolyline: res.estimate.GeometryPolyline,
			EstimateProvider: res.estimate.Provider,
			ForecastSource:   res.adjustment.Source,
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNoUsableOptions
	}

	policy := s.policy
	if req.Policy != nil {
		policy = *req.Policy
	}

	recommendation, err := ranking.Rank(candidates, policy)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:             "rec_" + uuid.NewString(),
		Recommendation: recommendation,
		Omitted:        omitted,
		Details:        details,
		GeneratedAt:    time.Now(),
	}

	s.logger.Info().
		Str("recommendation_id", result.ID).
		Int("option_count", len(candidates)).
		Int("omitted_count", len(omitted)).
		Str("chosen_mode", string(recommendation.Chosen().Option.Mode)).
		Msg("comparison complete")

	return result, nil
}

// lookupMode fetches one mode's baseline estimate and delay
// adjustment. A failed forecast degrades to a neutral adjustment; a
// failed estimate fails the mode.
func (s *Service) lookupMode(ctx context.Context, req Request, mode ranking.Mode) modeResult {
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	estimate, err := s.directions.GetEstimate(lookupCtx, directions.Request{
		Origin:      req.Origin,
		Destination: req.Destination,
		Mode:        mode,
	})
	if err != nil {
		return modeResult{err: err}
	}

	adjustment := ranking.DefaultAdjustment("none")
	if mode == ranking.ModeTransit {
		if req.TransitRouteID != "" {
			estimate.RouteID = req.TransitRouteID
		}
		if estimate.RouteID != "" {
			adjustment = s.prediction.ForecastOrDefault(lookupCtx, prediction.Request{
				Mode:    mode,
				RouteID: estimate.RouteID,
				Origin:  req.Origin,
				At:      time.Now(),
			})
		}
	}

	return modeResult{estimate: estimate, adjustment: adjustment}
}

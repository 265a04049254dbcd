package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/directions/heuristic"
	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

type fakeDirections struct {
	estimates map[ranking.Mode]*directions.Estimate
	errs      map[ranking.Mode]error
}

func (f *fakeDirections) GetEstimate(_ context.Context, req directions.Request) (*directions.Estimate, error) {
	if err, ok := f.errs[req.Mode]; ok {
		return nil, err
	}
	if est, ok := f.estimates[req.Mode]; ok {
		return est, nil
	}
	return nil, directions.ErrNoRouteFound
}

type fakeForecaster struct {
	adjustments map[string]ranking.Adjustment
	calls       []prediction.Request
}

func (f *fakeForecaster) ForecastOrDefault(_ context.Context, req prediction.Request) ranking.Adjustment {
	f.calls = append(f.calls, req)
	if adj, ok := f.adjustments[req.RouteID]; ok {
		return adj
	}
	return ranking.DefaultAdjustment("none")
}

func compareRequest(modes ...ranking.Mode) Request {
	return Request{
		Origin:      directions.Location{Lat: 37.7793, Lon: -122.4193},
		Destination: directions.Location{Lat: 37.7955, Lon: -122.3937},
		Modes:       modes,
	}
}

func newTestService(dir *fakeDirections, fc *fakeForecaster) *Service {
	return NewService(ServiceConfig{
		Directions: dir,
		Prediction: fc,
		Logger:     zerolog.Nop(),
	})
}

func TestService_Compare_RanksAllModes(t *testing.T) {
	dir := &fakeDirections{
		estimates: map[ranking.Mode]*directions.Estimate{
			ranking.ModeTransit: {
				Mode:            ranking.ModeTransit,
				DurationSeconds: 1080,
				CostCents:       250,
				RouteID:         "38",
			},
			ranking.ModeDriving: {
				Mode:            ranking.ModeDriving,
				DurationSeconds: 900,
				CostCents:       1200,
			},
		},
	}
	fc := &fakeForecaster{
		adjustments: map[string]ranking.Adjustment{
			"38": {DeltaSeconds: 180, Confidence: 0.9, Source: "realtime"},
		},
	}

	service := newTestService(dir, fc)

	result, err := service.Compare(context.Background(), compareRequest(ranking.ModeTransit, ranking.ModeDriving))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(result.ID, "rec_") {
		t.Errorf("expected rec_ id prefix, got %q", result.ID)
	}
	if len(result.Recommendation.Options) != 2 {
		t.Fatalf("expected 2 ranked options, got %d", len(result.Recommendation.Options))
	}

	chosen := result.Recommendation.Chosen()
	if chosen.Option.Mode != ranking.ModeDriving {
		t.Errorf("expected driving to win, got %s", chosen.Option.Mode)
	}
	if chosen.TotalDurationSeconds != 900 {
		t.Errorf("expected 900s total, got %d", chosen.TotalDurationSeconds)
	}

	// Transit total includes the forecast delay.
	for _, opt := range result.Recommendation.Options {
		if opt.Option.Mode == ranking.ModeTransit && opt.TotalDurationSeconds != 1260 {
			t.Errorf("expected transit total 1260, got %d", opt.TotalDurationSeconds)
		}
	}
}

func TestService_Compare_ForecastOnlyForTransit(t *testing.T) {
	dir := &fakeDirections{
		estimates: map[ranking.Mode]*directions.Estimate{
			ranking.ModeTransit: {Mode: ranking.ModeTransit, DurationSeconds: 1080, RouteID: "38"},
			ranking.ModeDriving: {Mode: ranking.ModeDriving, DurationSeconds: 900},
			ranking.ModeWalking: {Mode: ranking.ModeWalking, DurationSeconds: 2400},
		},
	}
	fc := &fakeForecaster{}

	service := newTestService(dir, fc)

	_, err := service.Compare(context.Background(),
		compareRequest(ranking.ModeTransit, ranking.ModeDriving, ranking.ModeWalking))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fc.calls) != 1 {
		t.Fatalf("expected 1 forecast call, got %d", len(fc.calls))
	}
	if fc.calls[0].RouteID != "38" {
		t.Errorf("expected forecast for route 38, got %s", fc.calls[0].RouteID)
	}
}

func TestService_Compare_OmitsFailedModes(t *testing.T) {
	dir := &fakeDirections{
		estimates: map[ranking.Mode]*directions.Estimate{
			ranking.ModeDriving: {Mode: ranking.ModeDriving, DurationSeconds: 900},
		},
		errs: map[ranking.Mode]error{
			ranking.ModeTransit: directions.ErrProviderUnavailable,
		},
	}

	service := newTestService(dir, &fakeForecaster{})

	result, err := service.Compare(context.Background(), compareRequest(ranking.ModeTransit, ranking.ModeDriving))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Recommendation.Options) != 1 {
		t.Fatalf("expected 1 ranked option, got %d", len(result.Recommendation.Options))
	}
	if len(result.Omitted) != 1 {
		t.Fatalf("expected 1 omitted mode, got %d", len(result.Omitted))
	}
	if result.Omitted[0].Mode != ranking.ModeTransit {
		t.Errorf("expected transit omitted, got %s", result.Omitted[0].Mode)
	}
	if result.Omitted[0].Reason == "" {
		t.Error("expected omission reason")
	}
}

func TestService_Compare_AllModesFail(t *testing.T) {
	dir := &fakeDirections{
		errs: map[ranking.Mode]error{
			ranking.ModeTransit: directions.ErrProviderUnavailable,
			ranking.ModeDriving: directions.ErrProviderUnavailable,
		},
	}

	service := newTestService(dir, &fakeForecaster{})

	_, err := service.Compare(context.Background(), compareRequest(ranking.ModeTransit, ranking.ModeDriving))
	if !errors.Is(err, ErrNoUsableOptions) {
		t.Errorf("expected ErrNoUsableOptions, got %v", err)
	}
}

func TestService_Compare_Validation(t *testing.T) {
	service := newTestService(&fakeDirections{}, &fakeForecaster{})

	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{
			name:   "no modes",
			mutate: func(r *Request) { r.Modes = nil },
			field:  "modes",
		},
		{
			name:   "invalid origin",
			mutate: func(r *Request) { r.Origin.Lat = 91 },
			field:  "origin",
		},
		{
			name: "duplicate mode",
			mutate: func(r *Request) {
				r.Modes = []ranking.Mode{ranking.ModeTransit, ranking.ModeTransit}
			},
			field: "modes[1]",
		},
		{
			name: "unknown mode",
			mutate: func(r *Request) {
				r.Modes = []ranking.Mode{"teleport"}
			},
			field: "modes[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := compareRequest(ranking.ModeTransit)
			tt.mutate(&req)

			_, err := service.Compare(context.Background(), req)

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}

			found := false
			for _, f := range valErr.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field %q in %v", tt.field, valErr.Fields)
			}
		})
	}
}

func TestService_Compare_PolicyOverride(t *testing.T) {
	dir := &fakeDirections{
		estimates: map[ranking.Mode]*directions.Estimate{
			ranking.ModeTransit: {Mode: ranking.ModeTransit, DurationSeconds: 1200, CostCents: 250, RouteID: "38"},
			ranking.ModeDriving: {Mode: ranking.ModeDriving, DurationSeconds: 1200, CostCents: 1500},
		},
	}

	service := newTestService(dir, &fakeForecaster{})

	req := compareRequest(ranking.ModeTransit, ranking.ModeDriving)
	req.Policy = &ranking.Policy{WeightTime: 1, WeightCost: 0.5}

	result, err := service.Compare(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Recommendation.Chosen().Option.Mode != ranking.ModeTransit {
		t.Errorf("expected transit to win on cost, got %s", result.Recommendation.Chosen().Option.Mode)
	}
}

func TestService_Compare_TransitRouteOverride(t *testing.T) {
	dir := &fakeDirections{
		estimates: map[ranking.Mode]*directions.Estimate{
			ranking.ModeTransit: {Mode: ranking.ModeTransit, DurationSeconds: 1080, RouteID: "38"},
		},
	}
	fc := &fakeForecaster{}

	service := newTestService(dir, fc)

	req := compareRequest(ranking.ModeTransit)
	req.TransitRouteID = "14"

	result, err := service.Compare(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fc.calls) != 1 {
		t.Fatalf("expected 1 forecast call, got %d", len(fc.calls))
	}
	if fc.calls[0].RouteID != "14" {
		t.Errorf("expected forecast for the requested route 14, got %s", fc.calls[0].RouteID)
	}
	if result.Details[0].RouteID != "14" {
		t.Errorf("expected detail route 14, got %s", result.Details[0].RouteID)
	}
}

func TestService_Compare_HeuristicEstimatesReachForecaster(t *testing.T) {
	// The full local pipeline: heuristic baselines must carry a
	// transit route so the forecast is actually consulted.
	directionsService := directions.NewService(directions.ServiceConfig{
		Provider: heuristic.NewProvider(zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})
	fc := &fakeForecaster{
		adjustments: map[string]ranking.Adjustment{
			"N": {DeltaSeconds: 240, Confidence: 0.7, Source: "historical"},
		},
	}

	service := NewService(ServiceConfig{
		Directions: directionsService,
		Prediction: fc,
		Logger:     zerolog.Nop(),
	})

	result, err := service.Compare(context.Background(),
		compareRequest(ranking.ModeTransit, ranking.ModeDriving))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fc.calls) != 1 {
		t.Fatalf("expected the transit estimate to trigger 1 forecast call, got %d", len(fc.calls))
	}
	if fc.calls[0].RouteID == "" {
		t.Error("expected the heuristic estimate to carry a route id")
	}

	for _, d := range result.Details {
		if d.Mode != ranking.ModeTransit {
			continue
		}
		if d.ForecastSource != "historical" {
			t.Errorf("expected transit forecast source historical, got %q", d.ForecastSource)
		}
		if d.RouteID == "" {
			t.Error("expected transit detail to carry a route id")
		}
	}
}

package heuristic

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

func civicCenterToFerryBuilding() directions.Request {
	return directions.Request{
		Origin:      directions.Location{Lat: 37.7793, Lon: -122.4193},
		Destination: directions.Location{Lat: 37.7955, Lon: -122.3937},
		Mode:        ranking.ModeTransit,
	}
}

func TestProvider_GetEstimate_Transit(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	est, err := p.GetEstimate(context.Background(), civicCenterToFerryBuilding())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if est.Mode != ranking.ModeTransit {
		t.Errorf("expected transit mode, got %s", est.Mode)
	}
	if est.CostCents != 250 {
		t.Errorf("expected flat transit fare of 250 cents, got %d", est.CostCents)
	}
	// Roughly 2.9km straight line with a detour factor, at transit
	// speed plus wait overhead the trip should land between 15 and
	// 30 minutes.
	if est.DurationSeconds < 900 || est.DurationSeconds > 1800 {
		t.Errorf("transit duration %d outside plausible range", est.DurationSeconds)
	}
	if est.GeometryPolyline == "" {
		t.Error("expected encoded geometry")
	}
	if est.Provider != ProviderName {
		t.Errorf("expected provider %q, got %q", ProviderName, est.Provider)
	}
}

func TestProvider_GetEstimate_DrivingCostsMore(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	req := civicCenterToFerryBuilding()
	req.Mode = ranking.ModeDriving

	est, err := p.GetEstimate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Parking dominates driving cost downtown.
	if est.CostCents < 1500 {
		t.Errorf("expected driving cost of at least 1500 cents, got %d", est.CostCents)
	}
}

func TestProvider_GetEstimate_WalkingIsFree(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	req := civicCenterToFerryBuilding()
	req.Mode = ranking.ModeWalking

	est, err := p.GetEstimate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if est.CostCents != 0 {
		t.Errorf("expected walking to be free, got %d cents", est.CostCents)
	}
}

func TestProvider_GetEstimate_WalkingSlowerThanBiking(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	walk := civicCenterToFerryBuilding()
	walk.Mode = ranking.ModeWalking
	bike := civicCenterToFerryBuilding()
	bike.Mode = ranking.ModeBiking

	walkEst, err := p.GetEstimate(context.Background(), walk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bikeEst, err := p.GetEstimate(context.Background(), bike)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if walkEst.DurationSeconds <= bikeEst.DurationSeconds {
		t.Errorf("walking (%ds) should be slower than biking (%ds)",
			walkEst.DurationSeconds, bikeEst.DurationSeconds)
	}
}

func TestProvider_GetEstimate_UnsupportedMode(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	req := civicCenterToFerryBuilding()
	req.Mode = "ferry"

	if _, err := p.GetEstimate(context.Background(), req); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestProvider_GetEstimate_TransitRouteAttribution(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	tests := []struct {
		name        string
		origin      directions.Location
		destination directions.Location
		wantRoute   string
	}{
		{
			name:        "east-west along Geary",
			origin:      directions.Location{Lat: 37.781, Lon: -122.501},
			destination: directions.Location{Lat: 37.785, Lon: -122.404},
			wantRoute:   "38",
		},
		{
			name:        "north-south along Mission",
			origin:      directions.Location{Lat: 37.792, Lon: -122.420},
			destination: directions.Location{Lat: 37.715, Lon: -122.442},
			wantRoute:   "14",
		},
		{
			name:        "diagonal rides the N",
			origin:      directions.Location{Lat: 37.7793, Lon: -122.4193},
			destination: directions.Location{Lat: 37.7955, Lon: -122.3937},
			wantRoute:   "N",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := directions.Request{
				Origin:      tt.origin,
				Destination: tt.destination,
				Mode:        ranking.ModeTransit,
			}

			est, err := p.GetEstimate(context.Background(), req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if est.RouteID != tt.wantRoute {
				t.Errorf("expected route %q, got %q", tt.wantRoute, est.RouteID)
			}

			// Attribution is deterministic for identical inputs.
			again, err := p.GetEstimate(context.Background(), req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if again.RouteID != est.RouteID {
				t.Errorf("route attribution changed between calls: %q then %q", est.RouteID, again.RouteID)
			}
		})
	}
}

func TestProvider_GetEstimate_NoRouteForNonTransit(t *testing.T) {
	p := NewProvider(zerolog.Nop())

	req := civicCenterToFerryBuilding()
	req.Mode = ranking.ModeDriving

	est, err := p.GetEstimate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.RouteID != "" {
		t.Errorf("expected no route id for driving, got %q", est.RouteID)
	}
}

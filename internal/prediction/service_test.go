package prediction

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sfmobility/sfmobility/internal/ranking"
)

type mockProvider struct {
	name      string
	forecast  *Forecast
	err       error
	callCount atomic.Int32
}

func (m *mockProvider) Forecast(_ context.Context, _ Request) (*Forecast, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.forecast, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func transitRequest(routeID string) Request {
	return Request{
		Mode:    ranking.ModeTransit,
		RouteID: routeID,
		At:      time.Now(),
	}
}

func TestService_Forecast_CacheMiss(t *testing.T) {
	provider := &mockProvider{
		name: "test-predictor",
		forecast: &Forecast{
			Mode:         ranking.ModeTransit,
			RouteID:      "38",
			DelaySeconds: 240,
			Confidence:   0.8,
			Source:       "historical",
			GeneratedAt:  time.Now(),
		},
	}

	service := NewService(ServiceConfig{Provider: provider})

	forecast, err := service.Forecast(context.Background(), transitRequest("38"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
	if forecast.DelaySeconds != 240 {
		t.Errorf("expected delay 240, got %v", forecast.DelaySeconds)
	}
}

func TestService_Forecast_CacheHit(t *testing.T) {
	provider := &mockProvider{
		name: "test-predictor",
		forecast: &Forecast{
			Mode:         ranking.ModeTransit,
			RouteID:      "38",
			DelaySeconds: 240,
			Confidence:   0.8,
			Source:       "historical",
		},
	}

	service := NewService(ServiceConfig{Provider: provider})

	req := transitRequest("38")
	if _, err := service.Forecast(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}
	if _, err := service.Forecast(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call after cache hit, got %d", provider.callCount.Load())
	}
}

func TestService_Forecast_RoutesCachedSeparately(t *testing.T) {
	provider := &mockProvider{
		name: "test-predictor",
		forecast: &Forecast{
			Mode:    ranking.ModeTransit,
			RouteID: "38",
			Source:  "historical",
		},
	}

	service := NewService(ServiceConfig{Provider: provider})

	if _, err := service.Forecast(context.Background(), transitRequest("38")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.Forecast(context.Background(), transitRequest("5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls for distinct routes, got %d", provider.callCount.Load())
	}
}

func TestService_Forecast_StaleIfError(t *testing.T) {
	provider := &mockProvider{
		name: "test-predictor",
		forecast: &Forecast{
			Mode:         ranking.ModeTransit,
			RouteID:      "38",
			DelaySeconds: 240,
			Source:       "historical",
		},
	}

	service := NewService(ServiceConfig{
		Provider:        provider,
		CacheTTL:        1 * time.Millisecond,
		StaleIfErrorTTL: 1 * time.Hour,
	})

	req := transitRequest("38")
	if _, err := service.Forecast(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	provider.err = ErrProviderUnavailable

	forecast, err := service.Forecast(context.Background(), req)
	if err != nil {
		t.Fatalf("expected stale forecast, got error: %v", err)
	}
	if forecast.DelaySeconds != 240 {
		t.Errorf("expected stale delay 240, got %v", forecast.DelaySeconds)
	}
}

func TestService_Forecast_InvalidRequest(t *testing.T) {
	provider := &mockProvider{name: "test-predictor"}
	service := NewService(ServiceConfig{Provider: provider})

	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "unknown mode",
			req:  Request{Mode: "teleport", RouteID: "38"},
		},
		{
			name: "transit without route id",
			req:  Request{Mode: ranking.ModeTransit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Forecast(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	if provider.callCount.Load() != 0 {
		t.Error("provider should not be called for invalid requests")
	}
}

func TestService_ForecastOrDefault_SubstitutesNeutral(t *testing.T) {
	provider := &mockProvider{
		name: "test-predictor",
		err:  ErrNoData,
	}

	service := NewService(ServiceConfig{Provider: provider})

	adj := service.ForecastOrDefault(context.Background(), transitRequest("38"))

	if adj.DeltaSeconds != 0 {
		t.Errorf("expected zero delta, got %v", adj.DeltaSeconds)
	}
	if adj.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", adj.Confidence)
	}
	if adj.Source != "none" {
		t.Errorf("expected source %q, got %q", "none", adj.Source)
	}
}

func TestService_ForecastOrDefault_PassesThroughForecast(t *testing.T) {
	provider := &mockProvider{
		name: "test-predictor",
		forecast: &Forecast{
			Mode:         ranking.ModeTransit,
			RouteID:      "38",
			DelaySeconds: 180,
			Confidence:   0.9,
			Source:       "realtime",
		},
	}

	service := NewService(ServiceConfig{Provider: provider})

	adj := service.ForecastOrDefault(context.Background(), transitRequest("38"))

	if adj.DeltaSeconds != 180 {
		t.Errorf("expected delta 180, got %v", adj.DeltaSeconds)
	}
	if adj.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", adj.Confidence)
	}
	if adj.Source != "realtime" {
		t.Errorf("expected source %q, got %q", "realtime", adj.Source)
	}
}

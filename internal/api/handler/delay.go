package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/api/response"
	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

// DelayHandler handles per-route delay forecast endpoints.
type DelayHandler struct {
	predictionService *prediction.Service
}

// NewDelayHandler creates a new DelayHandler.
func NewDelayHandler(predictionService *prediction.Service) *DelayHandler {
	return &DelayHandler{
		predictionService: predictionService,
	}
}

// GetRouteDelay handles GET /v1/routes/{routeId}/delay - current delay
// forecast for a transit route.
func (h *DelayHandler) GetRouteDelay(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if routeID == "" {
		response.BadRequest(w, r, "routeId is required", nil)
		return
	}

	forecast, err := h.predictionService.Forecast(r.Context(), prediction.Request{
		Mode:    ranking.ModeTransit,
		RouteID: routeID,
	})
	if err != nil {
		if errors.Is(err, prediction.ErrNoData) {
			response.NotFound(w, r, "no delay data for route "+routeID)
			return
		}
		if errors.Is(err, prediction.ErrInvalidRequest) {
			response.BadRequest(w, r, "invalid route", nil)
			return
		}
		if errors.Is(err, prediction.ErrRateLimitExceeded) {
			response.TooManyRequests(w, r, "delay provider rate limit exceeded")
			return
		}
		if errors.Is(err, prediction.ErrProviderUnavailable) {
			response.ServiceUnavailable(w, r, "delay provider unavailable")
			return
		}
		response.InternalError(w, r, "failed to fetch delay forecast")
		return
	}

	response.JSON(w, r, http.StatusOK, models.RouteDelay{
		RouteID:      routeID,
		DelaySeconds: forecast.DelaySeconds,
		Confidence:   forecast.Confidence,
		Source:       forecast.Source,
		SampleCount:  forecast.SampleCount,
		GeneratedAt:  models.Timestamp(forecast.GeneratedAt),
	})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/api/response"
	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/ranking"
	"github.com/sfmobility/sfmobility/internal/recommend"
	"github.com/sfmobility/sfmobility/internal/session"
)

// RecommendationHandler handles option comparison endpoints.
type RecommendationHandler struct {
	recommendService *recommend.Service
	sessions         session.Store
	logger           zerolog.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler. The session
// store is optional; when nil, no conversation state is kept.
func NewRecommendationHandler(recommendService *recommend.Service, sessions session.Store, logger zerolog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendService: recommendService,
		sessions:         sessions,
		logger:           logger,
	}
}

// Compare handles POST /v1/recommendations/compare - compare travel options.
func (h *RecommendationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	var input models.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.Origin == nil || input.Destination == nil {
		response.BadRequest(w, r, "origin and destination are required", nil)
		return
	}

	req := toCompareRequest(&input)

	result, err := h.recommendService.Compare(r.Context(), req)
	if err != nil {
		var validationErr *recommend.ValidationError
		if errors.As(err, &validationErr) {
			fieldErrors := make([]models.FieldError, len(validationErr.Fields))
			for i, f := range validationErr.Fields {
				fieldErrors[i] = models.FieldError{Field: f.Field, Message: f.Message}
			}
			response.BadRequest(w, r, "validation error", fieldErrors)
			return
		}
		if errors.Is(err, recommend.ErrNoUsableOptions) {
			response.ServiceUnavailable(w, r, "no travel option could be estimated")
			return
		}
		response.InternalError(w, r, "comparison failed")
		return
	}

	h.saveSession(r.Context(), userID, req, result)

	response.JSON(w, r, http.StatusOK, toCompareResponse(result))
}

// saveSession records the comparison so a follow-up request can reference
// it. Failures are logged and swallowed; the response is already decided.
func (h *RecommendationHandler) saveSession(ctx context.Context, userID string, req recommend.Request, result *recommend.Result) {
	if h.sessions == nil {
		return
	}

	origin := req.Origin
	destination := req.Destination
	state := &session.State{
		UserID:               userID,
		LastOrigin:           &origin,
		LastDestination:      &destination,
		LastModes:            req.Modes,
		LastRecommendationID: result.ID,
	}
	if err := h.sessions.Save(ctx, state); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to save session state")
	}
}

func toCompareRequest(input *models.CompareRequest) recommend.Request {
	modes := make([]ranking.Mode, len(input.Modes))
	for i, m := range input.Modes {
		modes[i] = ranking.Mode(m)
	}

	req := recommend.Request{
		Origin:         directions.Location{Lat: input.Origin.Lat, Lon: input.Origin.Lon},
		Destination:    directions.Location{Lat: input.Destination.Lat, Lon: input.Destination.Lon},
		Modes:          modes,
		TransitRouteID: input.TransitRouteID,
	}

	if input.Policy != nil {
		req.Policy = &ranking.Policy{
			WeightTime:                  input.Policy.WeightTime,
			WeightCost:                  input.Policy.WeightCost,
			MaxAcceptableDelaySeconds:   input.Policy.MaxAcceptableDelaySeconds,
			LowConfidencePenaltySeconds: input.Policy.LowConfidencePenaltySeconds,
		}
	}
	return req
}

func toCompareResponse(result *recommend.Result) models.CompareResponse {
	details := make(map[ranking.Mode]recommend.ModeDetail, len(result.Details))
	for _, d := range result.Details {
		details[d.Mode] = d
	}

	options := make([]models.ComparedOption, len(result.Recommendation.Options))
	for i, opt := range result.Recommendation.Options {
		compared := models.ComparedOption{
			Mode:                    models.Mode(opt.Option.Mode),
			Rank:                    opt.Rank,
			RouteID:                 opt.Option.RouteID,
			BaselineDurationSeconds: opt.Option.BaselineDurationSeconds,
			PredictedDelaySeconds:   opt.Adjustment.DeltaSeconds,
			TotalDurationSeconds:    opt.TotalDurationSeconds,
			CostCents:               opt.TotalCostCents,
			Confidence:              opt.Adjustment.Confidence,
			ForecastSource:          opt.Adjustment.Source,
		}
		if detail, ok := details[opt.Option.Mode]; ok {
			compared.DistanceMeters = detail.DistanceMeters
			compared.GeometryPolyline = detail.GeometryPolyline
			compared.Provider = detail.EstimateProvider
		}
		options[i] = compared
	}

	omitted := make([]models.OmittedOption, len(result.Omitted))
	for i, o := range result.Omitted {
		omitted[i] = models.OmittedOption{Mode: models.Mode(o.Mode), Reason: o.Reason}
	}

	generatedAt := result.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	return models.CompareResponse{
		ID:          result.ID,
		GeneratedAt: models.Timestamp(generatedAt),
		ChosenMode:  models.Mode(result.Recommendation.Chosen().Option.Mode),
		Rationale:   result.Recommendation.Rationale,
		Options:     options,
		Omitted:     omitted,
	}
}

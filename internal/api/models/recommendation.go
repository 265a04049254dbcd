package models

// PolicyInput tunes how compared options are scored. Zero weights fall back
// to time-only ranking.
type PolicyInput struct {
	WeightTime                  float64 `json:"weightTime,omitempty" validate:"omitempty,gte=0"`
	WeightCost                  float64 `json:"weightCost,omitempty" validate:"omitempty,gte=0"`
	MaxAcceptableDelaySeconds   int     `json:"maxAcceptableDelaySeconds,omitempty" validate:"omitempty,gte=0"`
	LowConfidencePenaltySeconds int     `json:"lowConfidencePenaltySeconds,omitempty" validate:"omitempty,gte=0"`
}

// CompareRequest is the request body for comparing travel options.
type CompareRequest struct {
	Origin      *Point       `json:"origin" validate:"required"`
	Destination *Point       `json:"destination" validate:"required"`
	Modes       []Mode       `json:"modes" validate:"required,min=1"`
	Policy      *PolicyInput `json:"policy,omitempty"`

	// TransitRouteID pins the delay forecast to a specific line
	// instead of the estimated one (e.g. "38").
	TransitRouteID string `json:"transitRouteId,omitempty" validate:"omitempty,max=16"`
}

// CompareResponse is the response for a completed comparison.
type CompareResponse struct {
	ID          string           `json:"id"`
	GeneratedAt Timestamp        `json:"generatedAt"`
	ChosenMode  Mode             `json:"chosenMode"`
	Rationale   string           `json:"rationale"`
	Options     []ComparedOption `json:"options"`
	Omitted     []OmittedOption  `json:"omitted,omitempty"`
}

// ComparedOption is one ranked travel option.
type ComparedOption struct {
	Mode                    Mode    `json:"mode"`
	Rank                    int     `json:"rank"`
	RouteID                 string  `json:"routeId,omitempty"`
	BaselineDurationSeconds int     `json:"baselineDurationSeconds"`
	PredictedDelaySeconds   float64 `json:"predictedDelaySeconds"`
	TotalDurationSeconds    int     `json:"totalDurationSeconds"`
	CostCents               int     `json:"costCents"`
	Confidence              float64 `json:"confidence"`
	ForecastSource          string  `json:"forecastSource,omitempty"`
	DistanceMeters          int     `json:"distanceMeters,omitempty"`
	GeometryPolyline        string  `json:"geometryPolyline,omitempty"`
	Provider                string  `json:"provider,omitempty"`
}

// OmittedOption records a requested mode that could not be compared.
type OmittedOption struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason"`
}

// RouteDelay is the current delay forecast for a transit route.
type RouteDelay struct {
	RouteID      string    `json:"routeId"`
	DelaySeconds float64   `json:"delaySeconds"`
	Confidence   float64   `json:"confidence"`
	Source       string    `json:"source"`
	SampleCount  int       `json:"sampleCount"`
	GeneratedAt  Timestamp `json:"generatedAt"`
}

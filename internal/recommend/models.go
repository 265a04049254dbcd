// Package recommend orchestrates a multimodal comparison: it gathers
// baseline estimates and delay forecasts for each requested travel
// mode concurrently, then ranks the results into a recommendation.
package recommend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

// Sentinel errors for comparisons.
var (
	// ErrNoUsableOptions indicates every requested mode failed to
	// produce a baseline estimate.
	ErrNoUsableOptions = errors.New("no usable options for comparison")
)

// Request describes one comparison.
type Request struct {
	Origin      directions.Location
	Destination directions.Location

	// Modes to compare, in the order results should tie-break.
	Modes []ranking.Mode

	// TransitRouteID names the transit line to forecast, overriding
	// the estimate's own route attribution (optional).
	TransitRouteID string

	// Policy overrides the service's ranking policy when non-nil.
	Policy *ranking.Policy
}

// Validate checks the comparison request.
func (r Request) Validate() error {
	var fieldErrors []FieldError

	if err := r.Origin.Validate(); err != nil {
		fieldErrors = append(fieldErrors, FieldError{Field: "origin", Message: err.Error()})
	}
	if err := r.Destination.Validate(); err != nil {
		fieldErrors = append(fieldErrors, FieldError{Field: "destination", Message: err.Error()})
	}
	if len(r.Modes) == 0 {
		fieldErrors = append(fieldErrors, FieldError{Field: "modes", Message: "at least one travel mode is required"})
	}

	seen := make(map[ranking.Mode]bool, len(r.Modes))
	for i, mode := range r.Modes {
		if !mode.Valid() {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   fmt.Sprintf("modes[%d]", i),
				Message: fmt.Sprintf("unknown travel mode %q", mode),
			})
			continue
		}
		if seen[mode] {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   fmt.Sprintf("modes[%d]", i),
				Message: fmt.Sprintf("duplicate travel mode %q", mode),
			})
		}
		seen[mode] = true
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates field-level validation failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// OmittedMode records a mode excluded from the comparison and why.
type OmittedMode struct {
	Mode   ranking.Mode
	Reason string
}

// ModeDetail carries per-mode provenance alongside the ranking.
type ModeDetail struct {
	Mode             ranking.Mode
	RouteID          string
	DistanceMeters   int
	GeometryPolyline string
	EstimateProvider string
	ForecastSource   string
}

// Result is one completed comparison.
type Result struct {
	ID             string
	Recommendation *ranking.Recommendation
	Omitted        []OmittedMode
	Details        []ModeDetail
	GeneratedAt    time.Time
}

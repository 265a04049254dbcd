// Package ranking orders multimodal travel options by adjusted total cost.
package ranking

import (
	"errors"
	"fmt"
)

// Sentinel errors for ranking operations.
var (
	// ErrNoOptions indicates an empty candidate list was supplied.
	ErrNoOptions = errors.New("no options to rank")
)

// Mode represents a mode of travel.
type Mode string

const (
	// ModeTransit covers Muni buses, light rail, and BART.
	ModeTransit Mode = "transit"
	// ModeDriving is private car travel, including parking search time.
	ModeDriving Mode = "driving"
	// ModeWalking is pedestrian travel.
	ModeWalking Mode = "walking"
	// ModeBiking is bicycle travel.
	ModeBiking Mode = "biking"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeTransit, ModeDriving, ModeWalking, ModeBiking:
		return true
	}
	return false
}

// ModeOption is one baseline travel option for one mode, before any
// predicted adjustment is applied.
type ModeOption struct {
	Mode Mode

	// BaselineDurationSeconds is the unadjusted travel time. Must be >= 0.
	BaselineDurationSeconds int

	// BaselineCostCents is the unadjusted monetary cost. Must be >= 0.
	BaselineCostCents int

	// RouteID optionally identifies the transit route or line (e.g. "38").
	RouteID string
}

// Adjustment is a predicted perturbation to a ModeOption. DeltaSeconds may
// be negative (early arrival). Confidence must be in [0, 1].
type Adjustment struct {
	DeltaSeconds float64
	Confidence   float64

	// Source tags where the prediction came from, e.g. "historical" or
	// "none" for the default adjustment.
	Source string
}

// DefaultAdjustment returns the zero-delta, zero-confidence adjustment used
// for options with no prediction available.
func DefaultAdjustment(source string) Adjustment {
	if source == "" {
		source = "none"
	}
	return Adjustment{DeltaSeconds: 0, Confidence: 0, Source: source}
}

// Candidate pairs exactly one ModeOption with exactly one Adjustment.
type Candidate struct {
	Option     ModeOption
	Adjustment Adjustment
}

// RankedOption is a candidate with its derived totals and 1-based rank.
type RankedOption struct {
	Option     ModeOption
	Adjustment Adjustment

	// TotalDurationSeconds is baseline plus delta, floored at zero.
	TotalDurationSeconds int

	// TotalCostCents equals the baseline cost; cost is not perturbed by
	// predicted delay.
	TotalCostCents int

	// Score is the weighted scalar the option was ordered by.
	Score float64

	// Rank is 1-based, contiguous, strictly increasing.
	Rank int
}

// Recommendation is the ordered result of ranking one set of candidates.
type Recommendation struct {
	// Options is sorted ascending by score.
	Options []RankedOption

	// ChosenIndex points into Options at the option the caller should
	// surface first. Usually 0, unless the severe-delay fallback applies.
	ChosenIndex int

	// Rationale is a deterministic, human-readable justification for the
	// chosen option.
	Rationale string
}

// Chosen returns the recommended option.
func (r *Recommendation) Chosen() RankedOption {
	return r.Options[r.ChosenIndex]
}

// InvalidAdjustmentError reports a malformed adjustment on one input.
type InvalidAdjustmentError struct {
	// Index is the position of the offending candidate in the input.
	Index int

	// Field names the offending field ("confidence" or "deltaSeconds").
	Field string

	// Value is the rejected value.
	Value float64
}

func (e *InvalidAdjustmentError) Error() string {
	return fmt.Sprintf("option %d: invalid %s: %v", e.Index, e.Field, e.Value)
}

package ranking

import (
	"fmt"
	"math"
	"sort"
)

// Default policy thresholds.
const (
	// DefaultMaxAcceptableDelaySeconds is how far the top-scored option's
	// total time may exceed the best baseline before the transit fallback
	// kicks in (15 minutes).
	DefaultMaxAcceptableDelaySeconds = 900

	// DefaultLowConfidencePenaltySeconds is added to the score of options
	// whose prediction confidence is below 0.5 (5 minutes).
	DefaultLowConfidencePenaltySeconds = 300
)

// Policy configures how candidates are scored and how the fallback choice
// is selected. Weights must be >= 0.
type Policy struct {
	// WeightTime scales total duration seconds into the score.
	WeightTime float64

	// WeightCost scales total cost cents into the score.
	WeightCost float64

	// MaxAcceptableDelaySeconds bounds how far the top option's total time
	// may exceed the best baseline-only time among all options.
	MaxAcceptableDelaySeconds int

	// LowConfidencePenaltySeconds penalizes options whose prediction
	// confidence is below 0.5, scaled by WeightTime.
	LowConfidencePenaltySeconds int
}

// DefaultPolicy ranks by total time only: weightTime=1, weightCost=0.
func DefaultPolicy() Policy {
	return Policy{
		WeightTime:                  1,
		WeightCost:                  0,
		MaxAcceptableDelaySeconds:   DefaultMaxAcceptableDelaySeconds,
		LowConfidencePenaltySeconds: DefaultLowConfidencePenaltySeconds,
	}
}

// normalized fills zero thresholds with defaults. A policy with both weights
// zero falls back to time-only ranking.
func (p Policy) normalized() Policy {
	if p.WeightTime == 0 && p.WeightCost == 0 {
		p.WeightTime = 1
	}
	if p.MaxAcceptableDelaySeconds == 0 {
		p.MaxAcceptableDelaySeconds = DefaultMaxAcceptableDelaySeconds
	}
	if p.LowConfidencePenaltySeconds == 0 {
		p.LowConfidencePenaltySeconds = DefaultLowConfidencePenaltySeconds
	}
	return p
}

// Rank converts candidates into an ordered Recommendation.
//
// The operation is pure: no I/O, no retained state, safe for concurrent use.
// Candidates are scored as
//
//	score = weightTime*totalDuration + weightCost*totalCost
//
// with a flat penalty for predictions with confidence below 0.5. Ties break
// by lower total duration, then lower total cost, then input order, so the
// result is deterministic for identical input order.
//
// Returns ErrNoOptions for an empty candidate list and
// *InvalidAdjustmentError when any confidence falls outside [0, 1] or any
// delta is NaN or infinite.
func Rank(candidates []Candidate, policy Policy) (*Recommendation, error) {
	if len(candidates) == 0 {
		return nil, ErrNoOptions
	}

	policy = policy.normalized()

	if err := validate(candidates); err != nil {
		return nil, err
	}

	ranked := make([]RankedOption, len(candidates))
	for i, c := range candidates {
		total := float64(c.Option.BaselineDurationSeconds) + c.Adjustment.DeltaSeconds
		if total < 0 {
			total = 0
		}
		totalDur := int(math.Round(total))

		score := policy.WeightTime*float64(totalDur) +
			policy.WeightCost*float64(c.Option.BaselineCostCents)
		if c.Adjustment.Confidence < 0.5 {
			score += float64(policy.LowConfidencePenaltySeconds) * policy.WeightTime
		}

		ranked[i] = RankedOption{
			Option:               c.Option,
			Adjustment:           c.Adjustment,
			TotalDurationSeconds: totalDur,
			TotalCostCents:       c.Option.BaselineCostCents,
			Score:                score,
		}
	}

	// Stable sort preserves input order as the final tie-breaker.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.TotalDurationSeconds != b.TotalDurationSeconds {
			return a.TotalDurationSeconds < b.TotalDurationSeconds
		}
		return a.TotalCostCents < b.TotalCostCents
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	chosen := chooseIndex(ranked, candidates, policy)

	return &Recommendation{
		Options:     ranked,
		ChosenIndex: chosen,
		Rationale:   buildRationale(ranked, chosen),
	}, nil
}

func validate(candidates []Candidate) error {
	for i, c := range candidates {
		conf := c.Adjustment.Confidence
		if math.IsNaN(conf) || conf < 0 || conf > 1 {
			return &InvalidAdjustmentError{Index: i, Field: "confidence", Value: conf}
		}
		if math.IsNaN(c.Adjustment.DeltaSeconds) || math.IsInf(c.Adjustment.DeltaSeconds, 0) {
			return &InvalidAdjustmentError{Index: i, Field: "deltaSeconds", Value: c.Adjustment.DeltaSeconds}
		}
	}
	return nil
}

// chooseIndex applies the severe-delay fallback: when the top-scored
// option's total time exceeds the best baseline-only time by more than
// MaxAcceptableDelaySeconds, surface the transit option with the smallest
// total time instead, if one exists.
func chooseIndex(ranked []RankedOption, candidates []Candidate, policy Policy) int {
	bestBaseline := candidates[0].Option.BaselineDurationSeconds
	for _, c := range candidates[1:] {
		if c.Option.BaselineDurationSeconds < bestBaseline {
			bestBaseline = c.Option.BaselineDurationSeconds
		}
	}

	if ranked[0].TotalDurationSeconds-bestBaseline <= policy.MaxAcceptableDelaySeconds {
		return 0
	}

	fallback := -1
	for i, opt := range ranked {
		if opt.Option.Mode != ModeTransit {
			continue
		}
		if fallback == -1 || opt.TotalDurationSeconds < ranked[fallback].TotalDurationSeconds {
			fallback = i
		}
	}
	if fallback == -1 {
		return 0
	}
	return fallback
}

func buildRationale(ranked []RankedOption, chosenIdx int) string {
	chosen := ranked[chosenIdx]

	fastest := ranked[0].TotalDurationSeconds
	for _, opt := range ranked[1:] {
		if opt.TotalDurationSeconds < fastest {
			fastest = opt.TotalDurationSeconds
		}
	}

	switch {
	case chosenIdx == 0 && chosen.TotalDurationSeconds == fastest:
		return fmt.Sprintf("%s: %ds total, fastest by time", chosen.Option.Mode, chosen.TotalDurationSeconds)
	case chosenIdx == 0:
		return fmt.Sprintf("%s: %ds total, best weighted time/cost score", chosen.Option.Mode, chosen.TotalDurationSeconds)
	default:
		diff := chosen.TotalDurationSeconds - ranked[0].TotalDurationSeconds
		return fmt.Sprintf("%s: %ds total, chosen despite %ds slower than rank 1: delay on the fastest option exceeds the acceptable window",
			chosen.Option.Mode, chosen.TotalDurationSeconds, diff)
	}
}

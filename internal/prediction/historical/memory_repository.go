package historical

import (
	"context"
	"math"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository for
// testing and local development.
type MemoryRepository struct {
	mu           sync.RWMutex
	observations []Observation
}

// NewMemoryRepository creates a new in-memory observation repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Insert stores a batch of observations.
func (r *MemoryRepository) Insert(_ context.Context, observations []Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observations...)
	return nil
}

// Stats returns aggregate delay statistics for a route since the given time.
func (r *MemoryRepository) Stats(_ context.Context, routeID string, since time.Time) (*RouteStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RouteStats{RouteID: routeID}

	sum := 0.0
	for _, obs := range r.observations {
		if obs.RouteID != routeID || obs.RecordedAt.Before(since) {
			continue
		}
		stats.SampleCount++
		sum += obs.DelaySeconds
		if obs.RecordedAt.After(stats.LastObservedAt) {
			stats.LastObservedAt = obs.RecordedAt
		}
	}

	if stats.SampleCount == 0 {
		return &stats, nil
	}

	stats.MeanDelaySeconds = sum / float64(stats.SampleCount)

	variance := 0.0
	for _, obs := range r.observations {
		if obs.RouteID != routeID || obs.RecordedAt.Before(since) {
			continue
		}
		diff := obs.DelaySeconds - stats.MeanDelaySeconds
		variance += diff * diff
	}
	stats.StdDevDelaySeconds = math.Sqrt(variance / float64(stats.SampleCount))

	return &stats, nil
}

// Prune deletes observations recorded before the given time.
func (r *MemoryRepository) Prune(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.observations[:0]
	var removed int64
	for _, obs := range r.observations {
		if obs.RecordedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, obs)
	}
	r.observations = kept

	return removed, nil
}

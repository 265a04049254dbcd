package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/prediction/fivetenone"
	"github.com/sfmobility/sfmobility/internal/prediction/historical"
	"github.com/sfmobility/sfmobility/internal/watch"
)

// VehicleSource provides realtime vehicle activity for the agency.
type VehicleSource interface {
	GetVehicleActivity(ctx context.Context) ([]fivetenone.VehicleActivity, error)
	Name() string
}

// Notifier delivers a triggered watch notification.
type Notifier interface {
	NotifyDelay(ctx context.Context, n DelayNotification) error
}

// DelayNotification describes one triggered delay watch.
type DelayNotification struct {
	WatchID          string    `json:"watch_id"`
	UserID           string    `json:"user_id"`
	RouteID          string    `json:"route_id"`
	Label            string    `json:"label,omitempty"`
	DelaySeconds     float64   `json:"delay_seconds"`
	ThresholdSeconds int       `json:"threshold_seconds"`
	SampleCount      int       `json:"sample_count"`
	ObservedAt       time.Time `json:"observed_at"`
}

// CollectJob ingests realtime delay observations, prunes old ones, and
// evaluates delay watches against the fresh data.
type CollectJob struct {
	config CollectConfig
	logger zerolog.Logger

	source       VehicleSource
	observations historical.Repository
	watches      watch.Repository
	notifier     Notifier

	metrics *CollectMetrics
}

// CollectMetrics tracks collection job statistics.
type CollectMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns          int64
	ObservationsStored int64
	ObservationsPruned int64
	RoutesEvaluated    int64
	WatchesTriggered   int64
	NotifyFailures     int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// CollectJobConfig holds configuration for creating a CollectJob.
type CollectJobConfig struct {
	Config       CollectConfig
	Logger       zerolog.Logger
	Source       VehicleSource
	Observations historical.Repository
	Watches      watch.Repository
	Notifier     Notifier
}

// NewCollectJob creates a new collection job processor.
func NewCollectJob(cfg CollectJobConfig) *CollectJob {
	config := cfg.Config.normalized()

	return &CollectJob{
		config:       config,
		logger:       cfg.Logger,
		source:       cfg.Source,
		observations: cfg.Observations,
		watches:      cfg.Watches,
		notifier:     cfg.Notifier,
		metrics:      &CollectMetrics{},
	}
}

// CollectResult contains the result of one collection run.
type CollectResult struct {
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
	ObservationsStored int
	ObservationsPruned int64
	RoutesEvaluated    int
	WatchesTriggered   int
	Errors             []CollectError
}

// CollectError represents an error during one stage of a run.
type CollectError struct {
	Stage   string
	RouteID string
	Error   string
}

// routeDelay is the aggregated delay for one route in one run.
type routeDelay struct {
	routeID     string
	meanSeconds float64
	sampleCount int
	observedAt  time.Time
}

// Run executes one full collection cycle.
func (j *CollectJob) Run(ctx context.Context) *CollectResult {
	startTime := time.Now()
	result := &CollectResult{StartTime: startTime}

	j.logger.Info().
		Str("source", j.source.Name()).
		Int("concurrency", j.config.Concurrency).
		Msg("starting delay collection job")

	var delays []routeDelay
	if !j.config.SkipCollect {
		delays = j.collectObservations(ctx, result)
	}

	if !j.config.SkipPrune {
		j.pruneObservations(ctx, result)
	}

	if !j.config.SkipWatches && len(delays) > 0 {
		j.evaluateWatches(ctx, delays, result)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("observations_stored", result.ObservationsStored).
		Int64("observations_pruned", result.ObservationsPruned).
		Int("routes_evaluated", result.RoutesEvaluated).
		Int("watches_triggered", result.WatchesTriggered).
		Int("errors", len(result.Errors)).
		Msg("delay collection job completed")

	return result
}

// collectObservations fetches vehicle activity, stores observations with a
// reported delay, and returns per-route delay aggregates.
func (j *CollectJob) collectObservations(ctx context.Context, result *CollectResult) []routeDelay {
	stageCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	activity, err := j.source.GetVehicleActivity(stageCtx)
	if err != nil {
		result.Errors = append(result.Errors, CollectError{
			Stage: "collect",
			Error: err.Error(),
		})
		return nil
	}

	observations := make([]historical.Observation, 0, len(activity))
	type agg struct {
		sum        float64
		count      int
		observedAt time.Time
	}
	byRoute := make(map[string]*agg)

	for _, va := range activity {
		if !va.HasDelay {
			continue
		}
		observations = append(observations, historical.Observation{
			ID:           uuid.New().String(),
			RouteID:      va.LineRef,
			VehicleID:    va.VehicleRef,
			DelaySeconds: va.DelaySeconds,
			Lat:          va.Lat,
			Lon:          va.Lon,
			RecordedAt:   va.RecordedAt,
		})

		a := byRoute[va.LineRef]
		if a == nil {
			a = &agg{}
			byRoute[va.LineRef] = a
		}
		a.sum += va.DelaySeconds
		a.count++
		if va.RecordedAt.After(a.observedAt) {
			a.observedAt = va.RecordedAt
		}
	}

	if len(observations) == 0 {
		j.logger.Debug().Msg("no delay observations in vehicle activity")
		return nil
	}

	if err := j.observations.Insert(stageCtx, observations); err != nil {
		result.Errors = append(result.Errors, CollectError{
			Stage: "store",
			Error: err.Error(),
		})
		return nil
	}

	result.ObservationsStored = len(observations)
	atomic.AddInt64(&j.metrics.ObservationsStored, int64(len(observations)))

	delays := make([]routeDelay, 0, len(byRoute))
	for routeID, a := range byRoute {
		delays = append(delays, routeDelay{
			routeID:     routeID,
			meanSeconds: a.sum / float64(a.count),
			sampleCount: a.count,
			observedAt:  a.observedAt,
		})
	}
	return delays
}

func (j *CollectJob) pruneObservations(ctx context.Context, result *CollectResult) {
	stageCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	pruned, err := j.observations.Prune(stageCtx, time.Now().Add(-j.config.Retention))
	if err != nil {
		result.Errors = append(result.Errors, CollectError{
			Stage: "prune",
			Error: err.Error(),
		})
		return
	}

	result.ObservationsPruned = pruned
	atomic.AddInt64(&j.metrics.ObservationsPruned, pruned)
}

// evaluateWatches fans per-route aggregates out to a small worker pool and
// notifies every armed watch whose threshold the route's delay crosses.
func (j *CollectJob) evaluateWatches(ctx context.Context, delays []routeDelay, result *CollectResult) {
	delaysChan := make(chan routeDelay, len(delays))
	resultsChan := make(chan evalResult, len(delays))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.evalWorker(ctx, delaysChan, resultsChan)
		}()
	}

	for _, d := range delays {
		delaysChan <- d
	}
	close(delaysChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for er := range resultsChan {
		result.RoutesEvaluated++
		result.WatchesTriggered += er.triggered
		result.Errors = append(result.Errors, er.errors...)
	}

	atomic.AddInt64(&j.metrics.RoutesEvaluated, int64(result.RoutesEvaluated))
	atomic.AddInt64(&j.metrics.WatchesTriggered, int64(result.WatchesTriggered))
}

type evalResult struct {
	routeID   string
	triggered int
	errors    []CollectError
}

func (j *CollectJob) evalWorker(ctx context.Context, delays <-chan routeDelay, results chan<- evalResult) {
	for d := range delays {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.evaluateRoute(ctx, d)
		}
	}
}

func (j *CollectJob) evaluateRoute(ctx context.Context, d routeDelay) evalResult {
	result := evalResult{routeID: d.routeID}

	routeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	watches, err := j.watches.ListActiveByRoute(routeCtx, d.routeID)
	if err != nil {
		result.errors = append(result.errors, CollectError{
			Stage:   "evaluate",
			RouteID: d.routeID,
			Error:   err.Error(),
		})
		return result
	}

	now := time.Now()
	for _, w := range watches {
		if !w.DueToday(now) || !w.Triggered(d.meanSeconds) {
			continue
		}
		if w.LastNotifiedAt != nil && now.Sub(*w.LastNotifiedAt) < j.config.NotifyCooldown {
			continue
		}

		notification := DelayNotification{
			WatchID:          w.ID,
			UserID:           w.UserID,
			RouteID:          w.RouteID,
			Label:            w.Label,
			DelaySeconds:     d.meanSeconds,
			ThresholdSeconds: w.ThresholdSeconds,
			SampleCount:      d.sampleCount,
			ObservedAt:       d.observedAt,
		}
		if err := j.notifier.NotifyDelay(routeCtx, notification); err != nil {
			atomic.AddInt64(&j.metrics.NotifyFailures, 1)
			result.errors = append(result.errors, CollectError{
				Stage:   "notify",
				RouteID: d.routeID,
				Error:   fmt.Sprintf("watch %s: %v", w.ID, err),
			})
			continue
		}

		if err := j.watches.MarkNotified(routeCtx, w.ID, now); err != nil {
			result.errors = append(result.errors, CollectError{
				Stage:   "notify",
				RouteID: d.routeID,
				Error:   fmt.Sprintf("marking watch %s: %v", w.ID, err),
			})
		}

		result.triggered++
		j.logger.Info().
			Str("watch_id", w.ID).
			Str("route_id", w.RouteID).
			Float64("delay_seconds", d.meanSeconds).
			Int("threshold_seconds", w.ThresholdSeconds).
			Msg("delay watch triggered")
	}

	return result
}

func (j *CollectJob) updateMetrics(result *CollectResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *CollectJob) GetMetrics() CollectMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return CollectMetrics{
		TotalRuns:          j.metrics.TotalRuns,
		ObservationsStored: j.metrics.ObservationsStored,
		ObservationsPruned: j.metrics.ObservationsPruned,
		RoutesEvaluated:    j.metrics.RoutesEvaluated,
		WatchesTriggered:   j.metrics.WatchesTriggered,
		NotifyFailures:     j.metrics.NotifyFailures,
		LastRunAt:          j.metrics.LastRunAt,
		LastRunDuration:    j.metrics.LastRunDuration,
		TotalDuration:      j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *CollectJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":          m.TotalRuns,
		"observations_stored": m.ObservationsStored,
		"observations_pruned": m.ObservationsPruned,
		"routes_evaluated":    m.RoutesEvaluated,
		"watches_triggered":   m.WatchesTriggered,
		"notify_failures":     m.NotifyFailures,
		"last_run_at":         m.LastRunAt,
		"last_run_duration":   m.LastRunDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}

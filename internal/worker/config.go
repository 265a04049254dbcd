// Package worker provides background job processing for the mobility service.
package worker

import (
	"time"
)

// CollectConfig holds configuration for the delay collection job.
// The zero value runs every stage with defaults.
type CollectConfig struct {
	// Concurrency is the number of concurrent watch evaluations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each pipeline stage.
	// Default: 30 seconds
	Timeout time.Duration

	// Retention is how long stored observations are kept.
	// Default: 14 days, twice the prediction lookback window.
	Retention time.Duration

	// NotifyCooldown suppresses repeat notifications for a watch that
	// already fired recently.
	// Default: 30 minutes
	NotifyCooldown time.Duration

	// SkipCollect disables fetching and storing vehicle activity.
	SkipCollect bool

	// SkipWatches disables delay watch evaluation.
	SkipWatches bool

	// SkipPrune disables deleting observations past retention.
	SkipPrune bool
}

// DefaultCollectConfig returns the default collection configuration.
func DefaultCollectConfig() CollectConfig {
	return CollectConfig{
		Concurrency:    3,
		Timeout:        30 * time.Second,
		Retention:      14 * 24 * time.Hour,
		NotifyCooldown: 30 * time.Minute,
	}
}

// normalized fills zero fields with defaults.
func (c CollectConfig) normalized() CollectConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = 14 * 24 * time.Hour
	}
	if c.NotifyCooldown <= 0 {
		c.NotifyCooldown = 30 * time.Minute
	}
	return c
}

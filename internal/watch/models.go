// Package watch provides route watch subscriptions. A watch asks to
// be told when a transit route's predicted delay crosses a threshold.
package watch

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrWatchNotFound = errors.New("watch not found")
)

// Watch represents a user's delay subscription for one route.
type Watch struct {
	ID               string
	UserID           string
	RouteID          string
	Label            string
	ThresholdSeconds int
	DaysOfWeek       []int
	Active           bool
	LastNotifiedAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DueToday reports whether the watch applies on the given day.
// An empty DaysOfWeek means every day. Days use ISO numbering,
// Monday is 1.
func (w *Watch) DueToday(t time.Time) bool {
	if len(w.DaysOfWeek) == 0 {
		return true
	}

	isoDay := int(t.Weekday())
	if isoDay == 0 {
		isoDay = 7
	}

	for _, day := range w.DaysOfWeek {
		if day == isoDay {
			return true
		}
	}
	return false
}

// Triggered reports whether a predicted delay crosses the threshold.
func (w *Watch) Triggered(delaySeconds float64) bool {
	return w.Active && delaySeconds >= float64(w.ThresholdSeconds)
}

package models

// Watch represents a delay watch on a transit route.
type Watch struct {
	ID               string     `json:"id"`
	RouteID          string     `json:"routeId"`
	Label            string     `json:"label,omitempty"`
	ThresholdSeconds int        `json:"thresholdSeconds"`
	DaysOfWeek       []int      `json:"daysOfWeek,omitempty"`
	Active           bool       `json:"active"`
	LastNotifiedAt   *Timestamp `json:"lastNotifiedAt,omitempty"`
	CreatedAt        Timestamp  `json:"createdAt"`
	UpdatedAt        Timestamp  `json:"updatedAt"`
}

// WatchCreateRequest is the request body for creating a watch.
type WatchCreateRequest struct {
	RouteID          string `json:"routeId" validate:"required"`
	Label            string `json:"label,omitempty" validate:"max=80"`
	ThresholdSeconds int    `json:"thresholdSeconds,omitempty" validate:"omitempty,gte=60,lte=3600"`
	DaysOfWeek       []int  `json:"daysOfWeek,omitempty" validate:"omitempty,dive,gte=1,lte=7"`
}

// WatchUpdateRequest is the request body for updating a watch. All fields
// are optional; only non-nil fields are applied.
type WatchUpdateRequest struct {
	Label            *string `json:"label,omitempty"`
	ThresholdSeconds *int    `json:"thresholdSeconds,omitempty"`
	DaysOfWeek       []int   `json:"daysOfWeek,omitempty"`
	Active           *bool   `json:"active,omitempty"`
}

// PagedWatches represents a paginated list of watches.
type PagedWatches struct {
	Items []Watch           `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

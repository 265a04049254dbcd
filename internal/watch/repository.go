package watch

import (
	"context"
	"time"
)

// ListOptions contains options for listing watches.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing watches.
type ListResult struct {
	Items      []*Watch
	NextCursor string
}

// Repository defines the interface for watch data persistence.
type Repository interface {
	// Get retrieves a watch by ID.
	Get(ctx context.Context, id string) (*Watch, error)

	// GetByUserAndID retrieves a watch by user ID and watch ID.
	// Returns ErrWatchNotFound if the watch doesn't exist or doesn't belong to the user.
	GetByUserAndID(ctx context.Context, userID, watchID string) (*Watch, error)

	// List retrieves all watches for a user with pagination.
	List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// ListActiveByRoute retrieves all active watches for a route.
	ListActiveByRoute(ctx context.Context, routeID string) ([]*Watch, error)

	// Create creates a new watch.
	Create(ctx context.Context, watch *Watch) error

	// Update updates an existing watch.
	Update(ctx context.Context, watch *Watch) error

	// MarkNotified records that the watch fired at the given time.
	MarkNotified(ctx context.Context, id string, at time.Time) error

	// Delete deletes a watch by ID.
	Delete(ctx context.Context, id string) error
}

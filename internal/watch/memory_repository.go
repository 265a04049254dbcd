package watch

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository for
// testing and local development.
type MemoryRepository struct {
	mu      sync.RWMutex
	watches map[string]*Watch
}

// NewMemoryRepository creates a new in-memory watch repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{watches: make(map[string]*Watch)}
}

// Get retrieves a watch by ID.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Watch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watch, ok := r.watches[id]
	if !ok {
		return nil, ErrWatchNotFound
	}

	copied := *watch
	return &copied, nil
}

// GetByUserAndID retrieves a watch by user ID and watch ID.
func (r *MemoryRepository) GetByUserAndID(_ context.Context, userID, watchID string) (*Watch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watch, ok := r.watches[watchID]
	if !ok || watch.UserID != userID {
		return nil, ErrWatchNotFound
	}

	copied := *watch
	return &copied, nil
}

// List retrieves all watches for a user with pagination.
func (r *MemoryRepository) List(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var watches []*Watch
	for _, watch := range r.watches {
		if watch.UserID == userID {
			copied := *watch
			watches = append(watches, &copied)
		}
	}

	sort.Slice(watches, func(i, j int) bool {
		return watches[i].CreatedAt.After(watches[j].CreatedAt)
	})

	result := &ListResult{Items: watches}
	if len(watches) > limit {
		result.Items = watches[:limit]
		result.NextCursor = watches[limit-1].ID
	}

	return result, nil
}

// ListActiveByRoute retrieves all active watches for a route.
func (r *MemoryRepository) ListActiveByRoute(_ context.Context, routeID string) ([]*Watch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var watches []*Watch
	for _, watch := range r.watches {
		if watch.RouteID == routeID && watch.Active {
			copied := *watch
			watches = append(watches, &copied)
		}
	}

	sort.Slice(watches, func(i, j int) bool {
		return watches[i].CreatedAt.Before(watches[j].CreatedAt)
	})

	return watches, nil
}

// Create creates a new watch.
func (r *MemoryRepository) Create(_ context.Context, watch *Watch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *watch
	r.watches[watch.ID] = &copied
	return nil
}

// Update updates an existing watch.
func (r *MemoryRepository) Update(_ context.Context, watch *Watch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watches[watch.ID]; !ok {
		return ErrWatchNotFound
	}

	copied := *watch
	r.watches[watch.ID] = &copied
	return nil
}

// MarkNotified records that the watch fired at the given time.
func (r *MemoryRepository) MarkNotified(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	watch, ok := r.watches[id]
	if !ok {
		return ErrWatchNotFound
	}

	notified := at
	watch.LastNotifiedAt = &notified
	return nil
}

// Delete deletes a watch by ID.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watches[id]; !ok {
		return ErrWatchNotFound
	}

	delete(r.watches, id)
	return nil
}

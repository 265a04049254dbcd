package watch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL watch repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const watchColumns = `
	id, user_id, route_id, label, threshold_seconds,
	days_of_week, active, last_notified_at, created_at, updated_at
`

// Get retrieves a watch by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Watch, error) {
	query := `SELECT ` + watchColumns + ` FROM route_watches WHERE id = $1`
	return r.scanWatch(ctx, query, id)
}

// GetByUserAndID retrieves a watch by user ID and watch ID.
func (r *PostgresRepository) GetByUserAndID(ctx context.Context, userID, watchID string) (*Watch, error) {
	query := `SELECT ` + watchColumns + ` FROM route_watches WHERE id = $1 AND user_id = $2`
	return r.scanWatch(ctx, query, watchID, userID)
}

// scanWatch scans a watch from a query result.
func (r *PostgresRepository) scanWatch(ctx context.Context, query string, args ...interface{}) (*Watch, error) {
	var watch Watch

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&watch.ID,
		&watch.UserID,
		&watch.RouteID,
		&watch.Label,
		&watch.ThresholdSeconds,
		&watch.DaysOfWeek,
		&watch.Active,
		&watch.LastNotifiedAt,
		&watch.CreatedAt,
		&watch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWatchNotFound
		}
		return nil, err
	}

	return &watch, nil
}

// List retrieves all watches for a user with pagination.
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `
		SELECT ` + watchColumns + `
		FROM route_watches
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	watches, err := collectWatches(rows)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: watches}
	if len(watches) > limit {
		result.Items = watches[:limit]
		result.NextCursor = watches[limit-1].ID
	}

	return result, nil
}

// ListActiveByRoute retrieves all active watches for a route.
func (r *PostgresRepository) ListActiveByRoute(ctx context.Context, routeID string) ([]*Watch, error) {
	query := `
		SELECT ` + watchColumns + `
		FROM route_watches
		WHERE route_id = $1 AND active
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWatches(rows)
}

func collectWatches(rows pgx.Rows) ([]*Watch, error) {
	var watches []*Watch
	for rows.Next() {
		var watch Watch
		err := rows.Scan(
			&watch.ID,
			&watch.UserID,
			&watch.RouteID,
			&watch.Label,
			&watch.ThresholdSeconds,
			&watch.DaysOfWeek,
			&watch.Active,
			&watch.LastNotifiedAt,
			&watch.CreatedAt,
			&watch.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		watches = append(watches, &watch)
	}
	return watches, rows.Err()
}

// Create creates a new watch.
func (r *PostgresRepository) Create(ctx context.Context, watch *Watch) error {
	query := `
		INSERT INTO route_watches (
			id, user_id, route_id, label, threshold_seconds,
			days_of_week, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		watch.ID,
		watch.UserID,
		watch.RouteID,
		watch.Label,
		watch.ThresholdSeconds,
		watch.DaysOfWeek,
		watch.Active,
		watch.CreatedAt,
		watch.UpdatedAt,
	)
	return err
}

// Update updates an existing watch.
func (r *PostgresRepository) Update(ctx context.Context, watch *Watch) error {
	query := `
		UPDATE route_watches SET
			label = $2,
			threshold_seconds = $3,
			days_of_week = $4,
			active = $5,
			updated_at = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		watch.ID,
		watch.Label,
		watch.ThresholdSeconds,
		watch.DaysOfWeek,
		watch.Active,
		watch.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWatchNotFound
	}
	return nil
}

// MarkNotified records that the watch fired at the given time.
func (r *PostgresRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE route_watches SET last_notified_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWatchNotFound
	}
	return nil
}

// Delete deletes a watch by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM route_watches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWatchNotFound
	}
	return nil
}

package historical

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL observation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert stores a batch of observations.
func (r *PostgresRepository) Insert(ctx context.Context, observations []Observation) error {
	if len(observations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO delay_observations (id, route_id, vehicle_id, delay_seconds, lat, lon, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, obs := range observations {
		batch.Queue(query,
			obs.ID,
			obs.RouteID,
			obs.VehicleID,
			obs.DelaySeconds,
			obs.Lat,
			obs.Lon,
			obs.RecordedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range observations {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// Stats returns aggregate delay statistics for a route since the given time.
func (r *PostgresRepository) Stats(ctx context.Context, routeID string, since time.Time) (*RouteStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(delay_seconds), 0),
			COALESCE(STDDEV_POP(delay_seconds), 0),
			COALESCE(MAX(recorded_at), 'epoch'::timestamptz)
		FROM delay_observations
		WHERE route_id = $1 AND recorded_at >= $2
	`

	stats := RouteStats{RouteID: routeID}
	err := r.pool.QueryRow(ctx, query, routeID, since).Scan(
		&stats.SampleCount,
		&stats.MeanDelaySeconds,
		&stats.StdDevDelaySeconds,
		&stats.LastObservedAt,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// Prune deletes observations recorded before the given time.
func (r *PostgresRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM delay_observations WHERE recorded_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

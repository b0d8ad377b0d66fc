package repository

import (
	"context"
	"fmt"
	"time"

	"wot-api/pkg/database"
)

type creationLogRepository struct {
	db *database.PostgresDB
}

// NewCreationLogRepository creates a Postgres-backed poll creation log.
func NewCreationLogRepository(db *database.PostgresDB) CreationLogRepository {
	return &creationLogRepository{db: db}
}

func (r *creationLogRepository) Insert(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO poll_creation_log (user_id, created_at) VALUES ($1, $2)`,
		userID, at)
	if err != nil {
		return fmt.Errorf("failed to log poll creation: %w", err)
	}
	return nil
}

// ListSince returns entries oldest-first so the caller can compute the
// reset instant from the first element.
func (r *creationLogRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT created_at
		FROM poll_creation_log
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read creation log: %w", err)
	}
	defer rows.Close()

	var entries []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan creation log entry: %w", err)
		}
		entries = append(entries, at)
	}
	return entries, rows.Err()
}

func (r *creationLogRepository) ReassignCreator(ctx context.Context, fromID, toID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE poll_creation_log SET user_id = $2 WHERE user_id = $1`, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign creation log: %w", err)
	}
	return tag.RowsAffected(), nil
}

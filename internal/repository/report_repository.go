package repository

import (
	"context"
	"fmt"

	"wot-api/internal/domain"
	"wot-api/pkg/database"
)

type reportRepository struct {
	db *database.PostgresDB
}

// NewReportRepository creates a Postgres-backed report ledger.
func NewReportRepository(db *database.PostgresDB) ReportRepository {
	return &reportRepository{db: db}
}

// Insert writes a report. The (poll_id, user_id) unique constraint
// violation is passed through for the service to interpret.
func (r *reportRepository) Insert(ctx context.Context, report *domain.Report) error {
	query := `
		INSERT INTO poll_reports (poll_id, user_id, reason)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	return r.db.Pool.QueryRow(ctx, query,
		report.PollID,
		report.UserID,
		report.Reason,
	).Scan(&report.ID, &report.CreatedAt)
}

func (r *reportRepository) ReassignReporter(ctx context.Context, fromID, toID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE poll_reports SET user_id = $2 WHERE user_id = $1`, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign reports: %w", err)
	}
	return tag.RowsAffected(), nil
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/pkg/database"
	"wot-api/pkg/errors"
)

type reportService struct {
	reportRepo repository.ReportRepository
	logger     *zap.Logger
}

// NewReportService creates the report ledger service.
func NewReportService(reportRepo repository.ReportRepository, logger *zap.Logger) ReportService {
	return &reportService{reportRepo: reportRepo, logger: logger}
}

// ReportPoll uses the same insert-then-interpret pattern as the vote
// ledger: no pre-check, a uniqueness violation means "already reported".
// Either outcome tells the client to hide the poll locally, so feed
// filtering does not wait on server-side propagation.
func (s *reportService) ReportPoll(ctx context.Context, pollID string, identity domain.Identity, reason domain.ReportReason) (*domain.ReportResult, error) {
	if !domain.ValidReportReason(reason) {
		return nil, errors.NewValidationError("Invalid report reason", map[string]interface{}{"reason": reason})
	}

	report := &domain.Report{
		PollID: pollID,
		UserID: identity.ID,
		Reason: reason,
	}

	if err := s.reportRepo.Insert(ctx, report); err != nil {
		if database.IsUniqueViolation(err) {
			return &domain.ReportResult{Success: false, AlreadyReported: true}, nil
		}
		return nil, fmt.Errorf("failed to report poll: %w", err)
	}

	s.logger.Info("Poll reported",
		zap.String("poll_id", pollID),
		zap.String("reason", string(reason)))

	return &domain.ReportResult{Success: true}, nil
}

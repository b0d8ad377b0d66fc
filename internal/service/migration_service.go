package service

import (
	"context"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/pkg/logger"
)

type migrationService struct {
	pollRepo   repository.PollRepository
	voteRepo   repository.VoteRepository
	reportRepo repository.ReportRepository
	logRepo    repository.CreationLogRepository
	logger     *logger.Logger
}

// NewMigrationService creates the identity migration service.
func NewMigrationService(pollRepo repository.PollRepository, voteRepo repository.VoteRepository, reportRepo repository.ReportRepository, logRepo repository.CreationLogRepository, logger *logger.Logger) MigrationService {
	return &migrationService{
		pollRepo:   pollRepo,
		voteRepo:   voteRepo,
		reportRepo: reportRepo,
		logRepo:    logRepo,
		logger:     logger,
	}
}

// MigrateAnonymousHistory re-points every record owned by the pre-upgrade
// anonymous identifier onto the new permanent id, one bulk conditional
// update per entity. With the id-preserving upgrade strategy the two ids
// are equal and this is a no-op; the contract point exists so an identity
// strategy that reintroduces an id change has somewhere to plug in.
//
// Failures are logged, never returned: signup and login success is
// independent of migration success, and the result carries whatever
// partial counts were achieved.
func (s *migrationService) MigrateAnonymousHistory(ctx context.Context, oldAnonID, newPermanentID string) *domain.MigrationResult {
	result := &domain.MigrationResult{}

	if oldAnonID == "" || oldAnonID == newPermanentID {
		return result
	}

	if n, err := s.pollRepo.ReassignCreator(ctx, oldAnonID, newPermanentID); err != nil {
		s.logger.WithError(err).Warn("Failed to migrate polls")
	} else {
		result.MigratedPolls = n
	}

	if n, err := s.voteRepo.ReassignVoter(ctx, oldAnonID, newPermanentID); err != nil {
		s.logger.WithError(err).Warn("Failed to migrate votes")
	} else {
		result.MigratedVotes = n
	}

	if _, err := s.reportRepo.ReassignReporter(ctx, oldAnonID, newPermanentID); err != nil {
		s.logger.WithError(err).Warn("Failed to migrate reports")
	}

	if _, err := s.logRepo.ReassignCreator(ctx, oldAnonID, newPermanentID); err != nil {
		s.logger.WithError(err).Warn("Failed to migrate creation log")
	}

	return result
}

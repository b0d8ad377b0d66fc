package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// With id-preserving upgrades the two ids are equal and no repository is
// touched.
func TestMigrationService_NoOpWhenIDPreserved(t *testing.T) {
	pollRepo := new(mockPollRepo)
	voteRepo := new(mockVoteRepo)
	reportRepo := new(mockReportRepo)
	logRepo := new(mockCreationLogRepo)
	svc := NewMigrationService(pollRepo, voteRepo, reportRepo, logRepo, testLogger())

	result := svc.MigrateAnonymousHistory(context.Background(), "user-1", "user-1")
	assert.Equal(t, int64(0), result.MigratedPolls)
	assert.Equal(t, int64(0), result.MigratedVotes)

	result = svc.MigrateAnonymousHistory(context.Background(), "", "user-1")
	assert.Equal(t, int64(0), result.MigratedPolls)

	pollRepo.AssertNotCalled(t, "ReassignCreator", mock.Anything, mock.Anything, mock.Anything)
	voteRepo.AssertNotCalled(t, "ReassignVoter", mock.Anything, mock.Anything, mock.Anything)
}

func TestMigrationService_ReassignsAllEntities(t *testing.T) {
	pollRepo := new(mockPollRepo)
	voteRepo := new(mockVoteRepo)
	reportRepo := new(mockReportRepo)
	logRepo := new(mockCreationLogRepo)
	svc := NewMigrationService(pollRepo, voteRepo, reportRepo, logRepo, testLogger())

	pollRepo.On("ReassignCreator", mock.Anything, "anon-1", "perm-1").Return(int64(3), nil)
	voteRepo.On("ReassignVoter", mock.Anything, "anon-1", "perm-1").Return(int64(7), nil)
	reportRepo.On("ReassignReporter", mock.Anything, "anon-1", "perm-1").Return(int64(1), nil)
	logRepo.On("ReassignCreator", mock.Anything, "anon-1", "perm-1").Return(int64(3), nil)

	result := svc.MigrateAnonymousHistory(context.Background(), "anon-1", "perm-1")
	assert.Equal(t, int64(3), result.MigratedPolls)
	assert.Equal(t, int64(7), result.MigratedVotes)

	pollRepo.AssertExpectations(t)
	voteRepo.AssertExpectations(t)
	reportRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
}

// A failed reassignment is logged and skipped; the rest still run and the
// result carries the partial counts.
func TestMigrationService_PartialFailure(t *testing.T) {
	pollRepo := new(mockPollRepo)
	voteRepo := new(mockVoteRepo)
	reportRepo := new(mockReportRepo)
	logRepo := new(mockCreationLogRepo)
	svc := NewMigrationService(pollRepo, voteRepo, reportRepo, logRepo, testLogger())

	pollRepo.On("ReassignCreator", mock.Anything, "anon-1", "perm-1").Return(int64(0), errors.New("timeout"))
	voteRepo.On("ReassignVoter", mock.Anything, "anon-1", "perm-1").Return(int64(4), nil)
	reportRepo.On("ReassignReporter", mock.Anything, "anon-1", "perm-1").Return(int64(0), nil)
	logRepo.On("ReassignCreator", mock.Anything, "anon-1", "perm-1").Return(int64(0), nil)

	result := svc.MigrateAnonymousHistory(context.Background(), "anon-1", "perm-1")
	assert.Equal(t, int64(0), result.MigratedPolls)
	assert.Equal(t, int64(4), result.MigratedVotes)
	voteRepo.AssertExpectations(t)
}

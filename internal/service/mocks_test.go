package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type mockPollRepo struct {
	mock.Mock
}

func (m *mockPollRepo) Create(ctx context.Context, poll *domain.Poll) error {
	args := m.Called(ctx, poll)
	return args.Error(0)
}

func (m *mockPollRepo) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	args := m.Called(ctx, id)
	if poll := args.Get(0); poll != nil {
		return poll.(*domain.Poll), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPollRepo) ListOpen(ctx context.Context, q repository.OpenPollQuery) ([]*domain.Poll, error) {
	args := m.Called(ctx, q)
	if polls := args.Get(0); polls != nil {
		return polls.([]*domain.Poll), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPollRepo) ListByCreator(ctx context.Context, userID string, limit int) ([]*domain.Poll, error) {
	args := m.Called(ctx, userID, limit)
	if polls := args.Get(0); polls != nil {
		return polls.([]*domain.Poll), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPollRepo) Close(ctx context.Context, pollID, userID string) (bool, error) {
	args := m.Called(ctx, pollID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPollRepo) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPollRepo) ReassignCreator(ctx context.Context, fromID, toID string) (int64, error) {
	args := m.Called(ctx, fromID, toID)
	return args.Get(0).(int64), args.Error(1)
}

type mockVoteRepo struct {
	mock.Mock
}

func (m *mockVoteRepo) Insert(ctx context.Context, vote *domain.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *mockVoteRepo) GetByPollAndUser(ctx context.Context, pollID, userID string) (*domain.Vote, error) {
	args := m.Called(ctx, pollID, userID)
	if vote := args.Get(0); vote != nil {
		return vote.(*domain.Vote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVoteRepo) ListPollIDsVotedBy(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVoteRepo) ListVotedPolls(ctx context.Context, userID string, limit int) ([]*domain.Poll, error) {
	args := m.Called(ctx, userID, limit)
	if polls := args.Get(0); polls != nil {
		return polls.([]*domain.Poll), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVoteRepo) GetCounts(ctx context.Context, pollID string) (*domain.VoteCounts, error) {
	args := m.Called(ctx, pollID)
	if counts := args.Get(0); counts != nil {
		return counts.(*domain.VoteCounts), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVoteRepo) ReassignVoter(ctx context.Context, fromID, toID string) (int64, error) {
	args := m.Called(ctx, fromID, toID)
	return args.Get(0).(int64), args.Error(1)
}

type mockReportRepo struct {
	mock.Mock
}

func (m *mockReportRepo) Insert(ctx context.Context, report *domain.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockReportRepo) ReassignReporter(ctx context.Context, fromID, toID string) (int64, error) {
	args := m.Called(ctx, fromID, toID)
	return args.Get(0).(int64), args.Error(1)
}

type mockCreationLogRepo struct {
	mock.Mock
}

func (m *mockCreationLogRepo) Insert(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *mockCreationLogRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, userID, since)
	if entries := args.Get(0); entries != nil {
		return entries.([]time.Time), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCreationLogRepo) ReassignCreator(ctx context.Context, fromID, toID string) (int64, error) {
	args := m.Called(ctx, fromID, toID)
	return args.Get(0).(int64), args.Error(1)
}

type mockModerator struct {
	mock.Mock
}

func (m *mockModerator) ModerateAndUpload(ctx context.Context, imageA, imageB, folderID string) (string, string, error) {
	args := m.Called(ctx, imageA, imageB, folderID)
	return args.String(0), args.String(1), args.Error(2)
}

type mockImageStore struct {
	mock.Mock
}

func (m *mockImageStore) DeleteFolder(ctx context.Context, folderID string) error {
	args := m.Called(ctx, folderID)
	return args.Error(0)
}

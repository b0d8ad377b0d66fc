package repository

import (
	"context"
	"time"

	"wot-api/internal/domain"
)

// OpenPollQuery selects open polls for the voting feed. Exclusion of
// already-voted and reported polls happens in the service layer against a
// fresh votes read.
type OpenPollQuery struct {
	Now          time.Time
	Genders      []domain.Gender
	MaxExpiresAt *time.Time
	Limit        int
}

// PollRepository persists polls and their lifecycle state.
type PollRepository interface {
	// Create inserts a poll and fills ID and CreatedAt.
	Create(ctx context.Context, poll *domain.Poll) error

	// GetByID returns a poll with flattened vote counts, or nil if absent.
	GetByID(ctx context.Context, id string) (*domain.Poll, error)

	// ListOpen returns active, unexpired polls newest-first.
	ListOpen(ctx context.Context, q OpenPollQuery) ([]*domain.Poll, error)

	// ListByCreator returns the creator's polls newest-first.
	ListByCreator(ctx context.Context, userID string, limit int) ([]*domain.Poll, error)

	// Close transitions an active poll to closed. Returns false when the
	// poll does not exist, is not owned by userID, or is already closed.
	Close(ctx context.Context, pollID, userID string) (bool, error)

	// CloseExpired closes all active polls past their expiration and
	// returns how many rows changed.
	CloseExpired(ctx context.Context, now time.Time) (int64, error)

	// ReassignCreator re-points polls from one identity to another.
	ReassignCreator(ctx context.Context, fromID, toID string) (int64, error)
}

// VoteRepository is the uniqueness-enforced vote ledger. Insert passes
// storage constraint violations through untranslated so the service can
// interpret them.
type VoteRepository interface {
	// Insert writes a vote and fills ID and CreatedAt.
	Insert(ctx context.Context, vote *domain.Vote) error

	// GetByPollAndUser returns the identity's vote on a poll, or nil.
	GetByPollAndUser(ctx context.Context, pollID, userID string) (*domain.Vote, error)

	// ListPollIDsVotedBy returns every poll id the identity has voted on.
	ListPollIDsVotedBy(ctx context.Context, userID string) ([]string, error)

	// ListVotedPolls returns polls the identity voted on, newest vote
	// first, with the identity's choice attached.
	ListVotedPolls(ctx context.Context, userID string, limit int) ([]*domain.Poll, error)

	// GetCounts returns the trigger-maintained aggregate for a poll.
	GetCounts(ctx context.Context, pollID string) (*domain.VoteCounts, error)

	// ReassignVoter re-points votes from one identity to another.
	ReassignVoter(ctx context.Context, fromID, toID string) (int64, error)
}

// ReportRepository is the uniqueness-enforced report ledger.
type ReportRepository interface {
	// Insert writes a report and fills ID and CreatedAt.
	Insert(ctx context.Context, report *domain.Report) error

	// ReassignReporter re-points reports from one identity to another.
	ReassignReporter(ctx context.Context, fromID, toID string) (int64, error)
}

// CreationLogRepository is the append-only poll-creation log backing the
// sliding-window rate limiter.
type CreationLogRepository interface {
	// Insert appends a log entry.
	Insert(ctx context.Context, userID string, at time.Time) error

	// ListSince returns the identity's entry timestamps at or after since,
	// oldest first.
	ListSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)

	// ReassignCreator re-points log entries from one identity to another.
	ReassignCreator(ctx context.Context, fromID, toID string) (int64, error)
}

// ProfileRepository persists user profiles. The username uniqueness
// constraint backs the signup pre-check.
type ProfileRepository interface {
	// Insert writes a profile; username collisions surface as constraint
	// violations.
	Insert(ctx context.Context, profile *domain.UserProfile) error

	// GetByID returns a profile, or nil if absent.
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)

	// UsernameTaken reports whether a username is already in use.
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/pkg/database"
	"wot-api/pkg/errors"
)

type voteService struct {
	voteRepo repository.VoteRepository
	pollRepo repository.PollRepository
	cache    *CacheService
	logger   *zap.Logger
}

// NewVoteService creates the vote ledger service.
func NewVoteService(voteRepo repository.VoteRepository, pollRepo repository.PollRepository, cache *CacheService, logger *zap.Logger) VoteService {
	return &voteService{voteRepo: voteRepo, pollRepo: pollRepo, cache: cache, logger: logger}
}

// CastVote always attempts the insert and interprets a uniqueness violation
// as "already voted". There is deliberately no existence pre-check: with
// multiple tabs and devices acting as the same identity, check-then-insert
// would race, while the storage constraint cannot.
func (s *voteService) CastVote(ctx context.Context, pollID string, identity domain.Identity, req *domain.VoteRequest) (*domain.VoteResult, error) {
	if !domain.ValidSide(req.Choice) {
		return nil, errors.NewValidationError("Invalid choice", map[string]interface{}{"choice": req.Choice})
	}
	if !domain.ValidGender(req.VoterGender) {
		return nil, errors.NewValidationError("Invalid voter gender", map[string]interface{}{"voter_gender": req.VoterGender})
	}

	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load poll: %w", err)
	}
	if poll == nil {
		return nil, errors.NewNotFoundError("Poll not found")
	}
	if !poll.IsOpen(time.Now()) {
		return nil, errors.NewConflictError("Poll is closed")
	}

	vote := &domain.Vote{
		PollID:      pollID,
		UserID:      identity.ID,
		VotedFor:    req.Choice,
		VoterGender: req.VoterGender,
	}

	if err := s.voteRepo.Insert(ctx, vote); err != nil {
		if database.IsUniqueViolation(err) {
			// Expected outcome, not a failure.
			return &domain.VoteResult{Success: false, AlreadyVoted: true}, nil
		}
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}

	// The vote_counts trigger has already updated the aggregate; this
	// service never computes it. Cache and fan-out are best-effort.
	s.cache.MarkVoted(ctx, identity.ID, pollID, req.Choice)

	counts, err := s.voteRepo.GetCounts(ctx, pollID)
	if err != nil {
		s.logger.Warn("Failed to read vote counts after cast",
			zap.String("poll_id", pollID), zap.Error(err))
	} else {
		s.cache.SetVoteCounts(ctx, counts)
		s.cache.PublishVoteCounts(ctx, counts)
	}

	return &domain.VoteResult{Success: true}, nil
}

// HasVoted reports the identity's prior-vote state. It keys on the same
// identity id as CastVote so a read never disagrees with a write made by
// the same actor.
func (s *voteService) HasVoted(ctx context.Context, pollID string, identity domain.Identity) (*domain.VoteStatus, error) {
	if side := s.cache.GetVoted(ctx, identity.ID, pollID); side != nil {
		return &domain.VoteStatus{HasVoted: true, VotedFor: side}, nil
	}

	vote, err := s.voteRepo.GetByPollAndUser(ctx, pollID, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check vote status: %w", err)
	}
	if vote == nil {
		return &domain.VoteStatus{HasVoted: false}, nil
	}

	s.cache.MarkVoted(ctx, identity.ID, pollID, vote.VotedFor)
	return &domain.VoteStatus{HasVoted: true, VotedFor: &vote.VotedFor}, nil
}

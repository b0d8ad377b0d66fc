package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

// sweepInterval is how often the background sweeper closes expired polls.
// Read paths never rely on it; expiry is also evaluated at read time.
const sweepInterval = time.Minute

type pollService struct {
	pollRepo  repository.PollRepository
	voteRepo  repository.VoteRepository
	rateLimit *RateLimitService
	moderator Moderator
	images    ImageStore
	logger    *logger.Logger
	now       func() time.Time

	mu          sync.Mutex
	isRunning   bool
	sweepTicker *time.Ticker
	stopSweep   chan struct{}
}

// NewPollService creates the poll lifecycle manager.
func NewPollService(pollRepo repository.PollRepository, voteRepo repository.VoteRepository, rateLimit *RateLimitService, moderator Moderator, images ImageStore, logger *logger.Logger) PollService {
	return &pollService{
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		rateLimit: rateLimit,
		moderator: moderator,
		images:    images,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePoll runs the full creation flow. The rate limit is checked twice:
// optimistically before the expensive moderation/upload step, and
// authoritatively right before the creation-log entry is written, narrowing
// the window where two in-flight attempts from the same identity both pass.
// Creation is not transactional across upload and insert, so a failed
// insert compensates by deleting the uploaded images.
func (s *pollService) CreatePoll(ctx context.Context, identity domain.Identity, req *domain.CreatePollRequest) (string, error) {
	if err := validateCreateRequest(req); err != nil {
		return "", err
	}

	status, err := s.rateLimit.Check(ctx, identity)
	if err != nil {
		return "", errors.NewInternalError("Failed to check rate limit", err)
	}
	if !status.CanCreate {
		return "", errors.NewRateLimitError("Poll creation limit reached", status.ResetAt)
	}

	// Correlation id for the image folder; becomes the cleanup handle if
	// the record insert fails.
	folderID := uuid.NewString()

	imageAURL, imageBURL, err := s.moderator.ModerateAndUpload(ctx, req.ImageA, req.ImageB, folderID)
	if err != nil {
		var modErr *ModerationError
		if stderrors.As(err, &modErr) {
			// Rejected images were never persisted; nothing to clean up.
			return "", errors.NewModerationError(modErr.UserMessage, modErr.RejectedImage)
		}
		return "", errors.NewExternalError("Failed to process images", err)
	}

	// Authoritative re-check now that the expensive work is done. The
	// check and the log write are still two calls, so an extremely tight
	// double submission can slip one poll over the limit; closing that
	// needs a storage-level max-count constraint.
	status, err = s.rateLimit.Check(ctx, identity)
	if err == nil && !status.CanCreate {
		s.cleanupImages(folderID)
		return "", errors.NewRateLimitError("Poll creation limit reached", status.ResetAt)
	}

	now := s.now()
	poll := &domain.Poll{
		PosterGender: req.PosterGender,
		BodyType:     req.BodyType,
		Context:      req.Context,
		ImageAURL:    imageAURL,
		ImageBURL:    imageBURL,
		UserID:       identity.ID,
		Status:       domain.PollActive,
		ExpiresAt:    now.Add(time.Duration(req.DurationMinutes) * time.Minute),
	}

	if err := s.pollRepo.Create(ctx, poll); err != nil {
		// Images are already in storage with no poll referencing them.
		s.cleanupImages(folderID)
		return "", errors.NewInternalError("Failed to create poll", err)
	}

	if err := s.rateLimit.Record(ctx, identity); err != nil {
		// The poll stands; a missing log entry only loosens the limit.
		s.logger.WithError(err).WithField("poll_id", poll.ID).
			Warn("Poll created but creation log entry failed")
	}

	return poll.ID, nil
}

// cleanupImages is best-effort compensation. A cleanup failure is logged,
// never escalated: the user already has an actionable error.
func (s *pollService) cleanupImages(folderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.images.DeleteFolder(ctx, folderID); err != nil {
		s.logger.WithError(err).WithField("folder", folderID).
			Error("Failed to clean up orphaned poll images")
	}
}

func validateCreateRequest(req *domain.CreatePollRequest) *errors.AppError {
	if req.ImageA == "" || req.ImageB == "" {
		return errors.NewValidationError("A poll requires exactly two images", nil)
	}
	if !domain.ValidGender(req.PosterGender) {
		return errors.NewValidationError("Invalid poster gender", map[string]interface{}{
			"allowed": []domain.Gender{domain.GenderMale, domain.GenderFemale, domain.GenderNonbinary},
		})
	}
	if !domain.ValidDuration(req.DurationMinutes) {
		return errors.NewValidationError("Invalid poll duration", map[string]interface{}{
			"allowed_minutes": domain.AllowedDurations,
		})
	}
	return nil
}

func (s *pollService) GetPollByID(ctx context.Context, id string) (*domain.Poll, error) {
	poll, err := s.pollRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch poll: %w", err)
	}
	if poll == nil {
		return nil, nil
	}

	// Read-time expiry: an expired poll reads as closed even before the
	// sweeper touches the row, and a closed row stays closed regardless
	// of its expiration timestamp.
	if !poll.IsOpen(s.now()) {
		poll.Status = domain.PollClosed
	}
	return poll, nil
}

// GetFilteredPolls serves the voting feed. The already-voted exclusion
// reads the votes table directly rather than any cache, so a poll the
// caller voted on a moment ago never reappears.
func (s *pollService) GetFilteredPolls(ctx context.Context, identity domain.Identity, filter *domain.PollFilter) ([]*domain.Poll, error) {
	if filter == nil {
		filter = &domain.PollFilter{}
	}

	now := s.now()
	open, err := s.pollRepo.ListOpen(ctx, repository.OpenPollQuery{
		Now:          now,
		Genders:      filter.Genders,
		MaxExpiresAt: filter.TimeFilter.MaxExpiresAt(now),
		Limit:        filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch polls: %w", err)
	}

	votedIDs, err := s.voteRepo.ListPollIDsVotedBy(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voted polls: %w", err)
	}

	voted := make(map[string]struct{}, len(votedIDs))
	for _, id := range votedIDs {
		voted[id] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	result := make([]*domain.Poll, 0, len(open))
	for _, poll := range open {
		if _, ok := voted[poll.ID]; ok {
			continue
		}
		if _, ok := excluded[poll.ID]; ok {
			continue
		}
		if !poll.IsOpen(now) {
			continue
		}
		result = append(result, poll)
	}
	return result, nil
}

func (s *pollService) GetUserCreatedPolls(ctx context.Context, identity domain.Identity, limit int) ([]*domain.Poll, error) {
	polls, err := s.pollRepo.ListByCreator(ctx, identity.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created polls: %w", err)
	}
	s.applyReadTimeExpiry(polls)
	return polls, nil
}

func (s *pollService) GetUserVotedPolls(ctx context.Context, identity domain.Identity, limit int) ([]*domain.Poll, error) {
	polls, err := s.voteRepo.ListVotedPolls(ctx, identity.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voted polls: %w", err)
	}
	s.applyReadTimeExpiry(polls)
	return polls, nil
}

func (s *pollService) applyReadTimeExpiry(polls []*domain.Poll) {
	now := s.now()
	for _, poll := range polls {
		if !poll.IsOpen(now) {
			poll.Status = domain.PollClosed
		}
	}
}

// ClosePoll is the explicit active -> closed transition, restricted to the
// poll's creator. Closed polls are never reopened.
func (s *pollService) ClosePoll(ctx context.Context, identity domain.Identity, pollID string) error {
	closed, err := s.pollRepo.Close(ctx, pollID, identity.ID)
	if err != nil {
		return errors.NewInternalError("Failed to close poll", err)
	}
	if !closed {
		poll, err := s.pollRepo.GetByID(ctx, pollID)
		if err != nil || poll == nil {
			return errors.NewNotFoundError("Poll not found")
		}
		if poll.UserID != identity.ID {
			return errors.NewAuthorizationError("Only the creator can close a poll")
		}
		// Already closed; the transition is idempotent from the caller's
		// point of view.
		return nil
	}
	return nil
}

func (s *pollService) CheckRateLimit(ctx context.Context, identity domain.Identity) (*domain.RateLimitStatus, error) {
	return s.rateLimit.Check(ctx, identity)
}

// Start launches the background sweeper that persists the active -> closed
// transition for expired polls.
func (s *pollService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	// A fresh stop channel per run; Stop closes it, so a restart after
	// Stop needs its own.
	s.sweepTicker = time.NewTicker(sweepInterval)
	s.stopSweep = make(chan struct{})
	go s.sweepLoop(s.sweepTicker, s.stopSweep)
	s.isRunning = true

	s.logger.Info("Poll expiry sweeper started")
	return nil
}

// Stop halts the sweeper.
func (s *pollService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.sweepTicker.Stop()
	close(s.stopSweep)
	s.isRunning = false

	s.logger.Info("Poll expiry sweeper stopped")
	return nil
}

func (s *pollService) sweepLoop(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			closed, err := s.pollRepo.CloseExpired(ctx, s.now())
			cancel()
			if err != nil {
				s.logger.WithError(err).Warn("Expired poll sweep failed")
				continue
			}
			if closed > 0 {
				s.logger.WithField("closed", closed).Debug("Closed expired polls")
			}
		case <-stop:
			return
		}
	}
}

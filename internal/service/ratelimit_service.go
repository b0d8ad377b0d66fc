package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/pkg/logger"
)

// Poll creation rate limit: a sliding 24-hour window, not a calendar-day
// reset.
const (
	PollsPerWindow  = 5
	RateLimitWindow = 24 * time.Hour
)

// RateLimitService enforces the poll-creation cap per identity.
type RateLimitService struct {
	logRepo repository.CreationLogRepository
	logger  *logger.Logger
	now     func() time.Time
}

// NewRateLimitService creates the rate limiter.
func NewRateLimitService(logRepo repository.CreationLogRepository, logger *logger.Logger) *RateLimitService {
	return &RateLimitService{logRepo: logRepo, logger: logger, now: time.Now}
}

// Check counts the identity's creation-log entries inside the trailing
// window. When the cap is hit, ResetAt is the oldest in-window entry plus
// the window length, the instant that entry ages out and frees a slot.
//
// A failed read fails open: blocking all poll creation on a transient
// storage error would hurt more than briefly over-admitting, so the
// condition is logged and creation allowed.
func (s *RateLimitService) Check(ctx context.Context, identity domain.Identity) (*domain.RateLimitStatus, error) {
	since := s.now().Add(-RateLimitWindow)

	entries, err := s.logRepo.ListSince(ctx, identity.ID, since)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", identity.ID).
			Warn("Rate limit check failed, allowing creation")
		return &domain.RateLimitStatus{CanCreate: true, Remaining: PollsPerWindow}, nil
	}

	remaining := PollsPerWindow - len(entries)
	if remaining < 0 {
		remaining = 0
	}

	status := &domain.RateLimitStatus{
		CanCreate: remaining > 0,
		Remaining: remaining,
	}

	if !status.CanCreate && len(entries) > 0 {
		resetAt := entries[0].Add(RateLimitWindow)
		status.ResetAt = &resetAt
	}

	return status, nil
}

// Record appends a creation-log entry for the identity. Entries are
// append-only; nothing ever updates or deletes them here.
func (s *RateLimitService) Record(ctx context.Context, identity domain.Identity) error {
	if err := s.logRepo.Insert(ctx, identity.ID, s.now()); err != nil {
		s.logger.WithError(err).WithField("user_id", identity.ID).
			Warn("Failed to record poll creation")
		return err
	}
	s.logger.Debug("Recorded poll creation", zap.String("user_id", identity.ID))
	return nil
}

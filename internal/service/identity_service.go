package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
	"wot-api/pkg/redis"
)

// ErrNoIdentity is returned when a request carries neither a valid token
// nor an anonymous cookie. It is a renderable state for the client, not a
// server failure.
var ErrNoIdentity = errors.NewAuthenticationError("No identity established")

// ErrIdentityPending is returned when another request from the same device
// is already creating the anonymous session. The client retries lazily.
var ErrIdentityPending = &errors.AppError{
	Type:       errors.ErrorTypeConflict,
	Message:    "Identity creation already in progress",
	StatusCode: 409,
}

type identityService struct {
	auth   AuthService
	redis  *redis.Client
	logger *logger.Logger
}

// NewIdentityService creates the identity resolver.
func NewIdentityService(auth AuthService, redisClient *redis.Client, logger *logger.Logger) IdentityService {
	return &identityService{auth: auth, redis: redisClient, logger: logger}
}

// Resolve determines the caller's identity. A valid bearer token wins; the
// cookie-bound anonymous id is the fallback so pre-upgrade clients keep a
// stable identity. Resolution is pure per request, so repeated calls within
// a session return the same identity until an upgrade changes the token.
func (s *identityService) Resolve(ctx context.Context, bearerToken, anonCookie string) (*domain.Identity, error) {
	if bearerToken != "" {
		identity, err := s.auth.ValidateToken(ctx, bearerToken)
		if err != nil {
			return nil, err
		}
		return identity, nil
	}

	if anonCookie != "" {
		return &domain.Identity{ID: anonCookie, Kind: domain.IdentityAnonymous}, nil
	}

	return nil, ErrNoIdentity
}

// IssueAnonymousID returns the existing cookie id unchanged, or mints a new
// opaque id for a first-time browser. Idempotent for any browser that sends
// its cookie back.
func (s *identityService) IssueAnonymousID(existing string) (string, bool) {
	if existing != "" {
		return existing, false
	}
	return uuid.NewString(), true
}

// CreateAnonymousSession creates one backend anonymous session per device.
// A short-lived SetNX lock keyed by the device id collapses concurrent
// first-load requests into a single creation call; losers get
// ErrIdentityPending and retry. A Redis outage fails open so identity
// creation never depends on the cache being up.
func (s *identityService) CreateAnonymousSession(ctx context.Context, deviceID string) (*domain.Session, error) {
	if s.redis != nil && deviceID != "" {
		key := s.redis.KeyBuilder.KeyIdentityBootstrap(deviceID)
		acquired, err := s.redis.SetNX(ctx, key, "1", redis.TTLIdentityBootstrap)
		if err != nil {
			s.logger.WithError(err).Warn("Identity bootstrap lock unavailable, proceeding without it")
		} else if !acquired {
			s.logger.WithField("device_id", deviceID).Debug("Anonymous session creation already in flight")
			return nil, ErrIdentityPending
		}
	}

	session, err := s.auth.CreateAnonymousSession(ctx)
	if err != nil {
		// Release the lock so the next attempt is not stuck behind a
		// failed creation for the full TTL.
		if s.redis != nil && deviceID != "" {
			_ = s.redis.Delete(ctx, s.redis.KeyBuilder.KeyIdentityBootstrap(deviceID))
		}
		return nil, err
	}

	s.logger.Info("Created anonymous session",
		zap.String("user_id", session.UserID),
		zap.String("device_id", deviceID))

	return session, nil
}

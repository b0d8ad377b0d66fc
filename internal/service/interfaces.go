package service

import (
	"context"

	"wot-api/internal/domain"
)

// AuthService fronts the external auth backend: token validation plus the
// signup/signin surface.
type AuthService interface {
	// ValidateToken verifies an access token and returns the identity it
	// carries. Anonymous sessions resolve to IdentityAnonymous.
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)

	// SignUp creates a permanent account with a unique, immutable username.
	// A taken username is a typed conflict, not a generic failure. When the
	// caller already holds an anonymous identity, its history is re-pointed
	// onto the new account.
	SignUp(ctx context.Context, req *domain.SignupRequest, anon *domain.Identity) (*domain.Session, error)

	// SignIn authenticates an existing account.
	SignIn(ctx context.Context, req *domain.SigninRequest) (*domain.Session, error)

	// SignOut revokes the session behind the token.
	SignOut(ctx context.Context, token string) error

	// CreateAnonymousSession mints an anonymous session carrying a real
	// account id.
	CreateAnonymousSession(ctx context.Context) (*domain.Session, error)

	// GetProfile returns the profile for a permanent account, or nil.
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// IdentityService resolves "who is making this request" and bootstraps
// anonymous identities.
type IdentityService interface {
	// Resolve returns the identity for a bearer token, falling back to the
	// cookie-bound anonymous id. Returns ErrNoIdentity when neither is
	// present; callers treat that as a renderable state, not a crash.
	Resolve(ctx context.Context, bearerToken, anonCookie string) (*domain.Identity, error)

	// IssueAnonymousID returns a stable opaque id for a browser, minting
	// one only when the cookie carries none.
	IssueAnonymousID(existing string) (id string, isNew bool)

	// CreateAnonymousSession creates a backend anonymous session for a
	// device, guarded so a burst of concurrent first-load requests
	// performs exactly one creation call.
	CreateAnonymousSession(ctx context.Context, deviceID string) (*domain.Session, error)
}

// VoteService is the vote ledger.
type VoteService interface {
	// CastVote records one vote per (poll, identity). Duplicate attempts
	// return AlreadyVoted instead of an error.
	CastVote(ctx context.Context, pollID string, identity domain.Identity, req *domain.VoteRequest) (*domain.VoteResult, error)

	// HasVoted returns the identity's prior-vote state on a poll, keyed on
	// the same identity rule as CastVote.
	HasVoted(ctx context.Context, pollID string, identity domain.Identity) (*domain.VoteStatus, error)
}

// PollService manages the poll lifecycle and feeds.
type PollService interface {
	CreatePoll(ctx context.Context, identity domain.Identity, req *domain.CreatePollRequest) (string, error)
	GetPollByID(ctx context.Context, id string) (*domain.Poll, error)
	GetFilteredPolls(ctx context.Context, identity domain.Identity, filter *domain.PollFilter) ([]*domain.Poll, error)
	GetUserCreatedPolls(ctx context.Context, identity domain.Identity, limit int) ([]*domain.Poll, error)
	GetUserVotedPolls(ctx context.Context, identity domain.Identity, limit int) ([]*domain.Poll, error)
	ClosePoll(ctx context.Context, identity domain.Identity, pollID string) error
	CheckRateLimit(ctx context.Context, identity domain.Identity) (*domain.RateLimitStatus, error)

	// Start and Stop control the background sweeper that closes expired
	// polls.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ReportService is the report ledger.
type ReportService interface {
	ReportPoll(ctx context.Context, pollID string, identity domain.Identity, reason domain.ReportReason) (*domain.ReportResult, error)
}

// MigrationService re-points anonymous history onto a permanent identity.
// With id-preserving upgrades it is a no-op, but the contract point stays.
type MigrationService interface {
	MigrateAnonymousHistory(ctx context.Context, oldAnonID, newPermanentID string) *domain.MigrationResult
}

// Moderator is the external image moderation + upload gate. It either
// returns public URLs for both images or a ModerationError naming the
// rejected image.
type Moderator interface {
	ModerateAndUpload(ctx context.Context, imageA, imageB, folderID string) (imageAURL, imageBURL string, err error)
}

// ImageStore is the storage collaborator used for compensation cleanup when
// a poll record fails after its images were uploaded.
type ImageStore interface {
	DeleteFolder(ctx context.Context, folderID string) error
}

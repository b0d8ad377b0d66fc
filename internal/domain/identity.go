package domain

import "time"

// IdentityKind distinguishes anonymous sessions from permanent accounts.
type IdentityKind string

const (
	IdentityAnonymous IdentityKind = "anonymous"
	IdentityPermanent IdentityKind = "permanent"
)

// Identity is the actor on whose behalf polls, votes and reports are
// recorded. With backend-managed anonymous sessions both kinds carry a real
// account id, so the id stays stable when an anonymous session is upgraded
// to a permanent account.
type Identity struct {
	ID   string       `json:"id"`
	Kind IdentityKind `json:"kind"`
}

// IsAnonymous reports whether the identity is an anonymous session.
func (i Identity) IsAnonymous() bool {
	return i.Kind == IdentityAnonymous
}

// UserProfile is the public profile attached to a permanent account.
// Username is assigned once at signup and never changes.
type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// MigrationResult reports how many historical records were re-pointed to a
// new permanent identity. With id-preserving upgrades both counts stay zero.
type MigrationResult struct {
	MigratedPolls int64 `json:"migrated_polls"`
	MigratedVotes int64 `json:"migrated_votes"`
}

// SignupRequest is the payload for account creation.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// SigninRequest is the payload for signing in.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the token bundle returned by the auth backend.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	UserID       string `json:"user_id"`
	IsAnonymous  bool   `json:"is_anonymous"`
}

// AnonymousID is the response of the cookie-bound anonymous id endpoint.
type AnonymousID struct {
	AnonID string `json:"anon_id"`
}

package domain

import "time"

// Gender is the poster's or voter's declared gender.
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonbinary Gender = "nonbinary"
)

// ValidGender reports whether g is one of the allowed values.
func ValidGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale, GenderNonbinary:
		return true
	}
	return false
}

// PollStatus is the lifecycle state of a poll. Transitions go
// active -> closed only; a poll is never reopened.
type PollStatus string

const (
	PollActive PollStatus = "active"
	PollClosed PollStatus = "closed"
)

// AllowedDurations are the poll lifetimes a creator can choose, in minutes.
var AllowedDurations = []int{15, 60, 240, 480}

// ValidDuration reports whether minutes is one of the allowed durations.
func ValidDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if minutes == d {
			return true
		}
	}
	return false
}

// Poll is a two-image comparison with a fixed expiration and aggregate vote
// counts. The expiration timestamp is immutable after creation.
type Poll struct {
	ID           string     `json:"id"`
	PosterGender Gender     `json:"poster_gender"`
	BodyType     *string    `json:"body_type,omitempty"`
	Context      *string    `json:"context,omitempty"`
	ImageAURL    string     `json:"image_a_url"`
	ImageBURL    string     `json:"image_b_url"`
	UserID       string     `json:"user_id"`
	Status       PollStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`

	// Flattened aggregate, maintained by the database trigger.
	VotesA     int `json:"votes_a"`
	VotesB     int `json:"votes_b"`
	TotalVotes int `json:"total_votes"`

	// Set on history feeds only: the caller's own choice.
	UserVote *Side      `json:"user_vote,omitempty"`
	VotedAt  *time.Time `json:"voted_at,omitempty"`
}

// IsOpen reports whether the poll accepts votes at the given instant.
// The stored status wins over the timestamp: a closed poll stays closed
// even if its expiration has not technically passed, and an expired poll
// counts as closed even before the sweeper updates the row.
func (p *Poll) IsOpen(now time.Time) bool {
	return p.Status == PollActive && now.Before(p.ExpiresAt)
}

// CreatePollRequest is the payload for poll creation. Images arrive as
// base64 so the moderation gate sees exactly what would be stored.
type CreatePollRequest struct {
	PosterGender    Gender  `json:"poster_gender"`
	BodyType        *string `json:"body_type,omitempty"`
	Context         *string `json:"context,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	ImageA          string  `json:"image_a"`
	ImageB          string  `json:"image_b"`
}

// TimeFilter buckets the feed by time remaining until expiry.
type TimeFilter string

const (
	TimeFilterSoon   TimeFilter = "soon"   // expires within 15 minutes
	TimeFilterHour   TimeFilter = "hour"   // expires within 1 hour
	TimeFilter4Hours TimeFilter = "4hours" // expires within 4 hours
	TimeFilterAll    TimeFilter = "all"
)

// MaxExpiresAt converts the bucket into an upper bound on expires_at, or
// nil for the unbounded filter.
func (f TimeFilter) MaxExpiresAt(now time.Time) *time.Time {
	var d time.Duration
	switch f {
	case TimeFilterSoon:
		d = 15 * time.Minute
	case TimeFilterHour:
		d = time.Hour
	case TimeFilter4Hours:
		d = 4 * time.Hour
	default:
		return nil
	}
	t := now.Add(d)
	return &t
}

// PollFilter selects polls for the voting feed. ExcludeIDs carries the
// caller's locally reported set, which filters immediately without waiting
// on the report ledger.
type PollFilter struct {
	Genders    []Gender   `json:"genders,omitempty"`
	TimeFilter TimeFilter `json:"time_filter,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	ExcludeIDs []string   `json:"exclude_ids,omitempty"`
}

// RateLimitStatus is the result of a poll-creation rate limit check.
// ResetAt is the instant the oldest in-window entry ages out, set only
// when creation is currently blocked.
type RateLimitStatus struct {
	CanCreate bool       `json:"can_create"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

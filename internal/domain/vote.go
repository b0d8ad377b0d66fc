package domain

import "time"

// Side is which of the two outfits a vote is for.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// ValidSide reports whether s is A or B.
func ValidSide(s Side) bool {
	return s == SideA || s == SideB
}

// Vote records one choice per (poll, identity). Votes are created once and
// never mutated; uniqueness is a storage constraint, not an application
// check.
type Vote struct {
	ID          string    `json:"id"`
	PollID      string    `json:"poll_id"`
	UserID      string    `json:"user_id"`
	VotedFor    Side      `json:"voted_for"`
	VoterGender Gender    `json:"voter_gender"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoteCounts is the per-poll aggregate maintained by the database trigger.
// TotalVotes always equals VotesA + VotesB.
type VoteCounts struct {
	PollID     string `json:"poll_id"`
	VotesA     int    `json:"votes_a"`
	VotesB     int    `json:"votes_b"`
	TotalVotes int    `json:"total_votes"`
}

// VoteRequest is the payload for casting a vote.
type VoteRequest struct {
	Choice      Side   `json:"choice"`
	VoterGender Gender `json:"voter_gender"`
}

// VoteResult reports the outcome of a cast attempt. AlreadyVoted is an
// expected outcome, not an error.
type VoteResult struct {
	Success      bool `json:"success"`
	AlreadyVoted bool `json:"already_voted,omitempty"`
}

// VoteStatus is the caller's prior-vote state on a poll.
type VoteStatus struct {
	HasVoted bool  `json:"has_voted"`
	VotedFor *Side `json:"voted_for,omitempty"`
}

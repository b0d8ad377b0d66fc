package domain

import "time"

// ReportReason is the fixed set of reasons a poll can be reported for.
type ReportReason string

const (
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonSpam          ReportReason = "spam"
	ReasonOffensive     ReportReason = "offensive"
	ReasonOther         ReportReason = "other"
)

// ValidReportReason reports whether r is one of the allowed reasons.
func ValidReportReason(r ReportReason) bool {
	switch r {
	case ReasonInappropriate, ReasonSpam, ReasonOffensive, ReasonOther:
		return true
	}
	return false
}

// Report records at most one report per (poll, identity), enforced by a
// storage uniqueness constraint.
type Report struct {
	ID        string       `json:"id"`
	PollID    string       `json:"poll_id"`
	UserID    string       `json:"user_id"`
	Reason    ReportReason `json:"reason"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReportRequest is the payload for reporting a poll.
type ReportRequest struct {
	Reason ReportReason `json:"reason"`
}

// ReportResult reports the outcome of a report attempt. AlreadyReported is
// an expected outcome; either way the client hides the poll locally.
type ReportResult struct {
	Success         bool `json:"success"`
	AlreadyReported bool `json:"already_reported,omitempty"`
}

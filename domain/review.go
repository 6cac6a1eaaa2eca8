package domain

import (
	"fmt"
	"time"
)

// ReviewStatus is the reviewer-facing status axis of a task.
type ReviewStatus int

const (
	ReviewRequested   ReviewStatus = 0
	ReviewApproved    ReviewStatus = 1
	ReviewRejected    ReviewStatus = 2
	ReviewAssisted    ReviewStatus = 3
	ReviewDisputed    ReviewStatus = 4
	ReviewUnnecessary ReviewStatus = 5
)

func (s ReviewStatus) String() string {
	switch s {
	case ReviewRequested:
		return "requested"
	case ReviewApproved:
		return "approved"
	case ReviewRejected:
		return "rejected"
	case ReviewAssisted:
		return "assisted"
	case ReviewDisputed:
		return "disputed"
	case ReviewUnnecessary:
		return "unnecessary"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Valid reports whether s is a defined review status.
func (s ReviewStatus) Valid() bool {
	return s >= ReviewRequested && s <= ReviewUnnecessary
}

// SelfServe reports whether any user may move a task to this status.
// All other targets require the caller to be a reviewer or superuser.
func (s ReviewStatus) SelfServe() bool {
	return s == ReviewRequested || s == ReviewDisputed || s == ReviewUnnecessary
}

// ReviewFields is the review state embedded on a task row.
type ReviewFields struct {
	Status          *ReviewStatus `json:"review_status,omitempty"`
	RequestedBy     *int64        `json:"review_requested_by,omitempty"`
	ReviewedBy      *int64        `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	ReviewStartedAt *time.Time    `json:"review_started_at,omitempty"`
	ClaimedBy       *int64        `json:"review_claimed_by,omitempty"`
	ClaimedAt       *time.Time    `json:"review_claimed_at,omitempty"`
}

// ClaimedByOther reports whether the task's review is claimed by a user
// other than userID.
func (f ReviewFields) ClaimedByOther(userID int64) bool {
	return f.ClaimedBy != nil && *f.ClaimedBy != userID
}

// Transition is the classification of a requested status change. The
// attribution and scoring rules of SetReviewStatus hang off these two flags.
type Transition struct {
	From *ReviewStatus
	To   ReviewStatus
}

// IsDispute reports whether this transition is the first move into Disputed.
// A task already Disputed being set Disputed again is a plain transition.
func (tr Transition) IsDispute() bool {
	return tr.To == ReviewDisputed && (tr.From == nil || *tr.From != ReviewDisputed)
}

// NeedsReReview reports whether the transition hands the task back to the
// mapper: a move back to Requested from any other status, or a dispute.
func (tr Transition) NeedsReReview() bool {
	if tr.IsDispute() {
		return true
	}
	return tr.To == ReviewRequested && (tr.From == nil || *tr.From != ReviewRequested)
}

// ReviewHistoryEntry is one append-only audit row, written once per
// completed transition and never updated.
type ReviewHistoryEntry struct {
	ID              int64        `json:"id"`
	TaskID          int64        `json:"task_id"`
	RequestedBy     *int64       `json:"requested_by,omitempty"`
	ReviewedBy      *int64       `json:"reviewed_by,omitempty"`
	Status          ReviewStatus `json:"review_status"`
	ReviewedAt      time.Time    `json:"reviewed_at"`
	ReviewStartedAt *time.Time   `json:"review_started_at,omitempty"`
}

package domain

import "time"

// Item types used to key resource locks.
const (
	ItemTypeTask      = "task"
	ItemTypeChallenge = "challenge"
	ItemTypeBundle    = "bundle"
)

// Mapper-facing task statuses. Review status is tracked separately on
// ReviewFields; the two axes move independently.
const (
	TaskStatusCreated  = 0
	TaskStatusFixed    = 1
	TaskStatusFalse    = 2
	TaskStatusSkipped  = 3
	TaskStatusDeleted  = 4
	TaskStatusAlready  = 5
	TaskStatusTooHard  = 6
	TaskStatusAnswered = 7
	TaskStatusDisabled = 9
)

// Task is the unit of mapping work. Rows are created by the task CRUD
// service; this engine mutates review, bundle and lock state in place.
type Task struct {
	ID              int64        `json:"id"`
	ChallengeID     int64        `json:"challenge_id"`
	Name            string       `json:"name"`
	Status          int          `json:"status"`
	Priority        int          `json:"priority"`
	MappedBy        *int64       `json:"mapped_by,omitempty"`
	BundleID        *int64       `json:"bundle_id,omitempty"`
	IsBundlePrimary *bool        `json:"is_bundle_primary,omitempty"`
	SuggestedFix    bool         `json:"suggested_fix"`
	Review          ReviewFields `json:"review"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsBundled reports whether the task currently belongs to a bundle.
func (t *Task) IsBundled() bool {
	return t != nil && t.BundleID != nil
}

// IsPrimary reports whether the task is the designated primary of its bundle.
func (t *Task) IsPrimary() bool {
	return t != nil && t.IsBundlePrimary != nil && *t.IsBundlePrimary
}

// IsBundleChild reports whether the task is a non-primary bundle member.
// Bundle children never surface in the review queue on their own.
func (t *Task) IsBundleChild() bool {
	return t.IsBundled() && !t.IsPrimary()
}

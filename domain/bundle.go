package domain

import "time"

// TaskBundle groups tasks so that claiming, locking and review status act on
// all members together. Exactly one member is the primary; only the primary
// surfaces in the review queue.
type TaskBundle struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Name          string    `json:"name"`
	PrimaryTaskID *int64    `json:"primary_task_id,omitempty"`
	TaskIDs       []int64   `json:"task_ids"`
	Tasks         []Task    `json:"tasks,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

package transport

// SetReviewStatusRequest drives one review state transition.
type SetReviewStatusRequest struct {
	Status   int    `json:"status"`
	Comment  string `json:"comment,omitempty"`
	ActionID string `json:"action_id,omitempty"`
}

// CreateBundleRequest groups tasks into a bundle. PrimaryTaskID defaults to
// the first task when omitted.
type CreateBundleRequest struct {
	Name          string  `json:"name"`
	TaskIDs       []int64 `json:"task_ids"`
	PrimaryTaskID *int64  `json:"primary_task_id,omitempty"`
}

// UnbundleRequest names the non-primary members to release.
type UnbundleRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

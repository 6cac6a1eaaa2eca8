package domain

// User carries the identity and grants the engine needs to authorize review
// actions. Accounts themselves live in the user service; these fields ride
// in the auth token.
type User struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Reviewer  bool    `json:"reviewer"`
	Superuser bool    `json:"superuser"`
	GroupIDs  []int64 `json:"group_ids,omitempty"`
}

// CanReview reports whether the user may perform reviews at all.
func (u User) CanReview() bool {
	return u.Reviewer || u.Superuser
}

package domain

// Challenge is the read-only slice of a challenge the engine needs for
// visibility and write-access decisions. Challenge CRUD lives elsewhere.
type Challenge struct {
	ID             int64  `json:"id"`
	ProjectID      int64  `json:"project_id"`
	Name           string `json:"name"`
	OwnerID        int64  `json:"owner_id"`
	Enabled        bool   `json:"enabled"`
	ProjectEnabled bool   `json:"project_enabled"`
	ProjectOwnerID int64  `json:"project_owner_id"`
}

// VisibleTo reports whether the challenge surfaces in the shared review
// queue for the given user.
func (c Challenge) VisibleTo(u User) bool {
	if u.Superuser {
		return true
	}
	if c.Enabled && c.ProjectEnabled {
		return true
	}
	return c.OwnerID == u.ID || c.ProjectOwnerID == u.ID
}

// WritableBy reports whether the user may manage tasks under this challenge.
func (c Challenge) WritableBy(u User) bool {
	return u.Superuser || c.OwnerID == u.ID || c.ProjectOwnerID == u.ID
}

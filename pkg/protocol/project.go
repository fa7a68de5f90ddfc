package protocol

import "time"

// Project groups tickets and the users allowed to work on them.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Members     []UserRef `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasMember reports whether userID is in the member list.
func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// ProjectRef is the display summary of a project embedded in tickets.
// Members is only populated for detail views.
type ProjectRef struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Members []UserRef `json:"members,omitempty"`
}

// NewProject is the validated input for creating a project.
type NewProject struct {
	Name        string
	Description string
}

package protocol

import "time"

// Job titles a user can hold.
const (
	JobProjectManager   = "Project Manager"
	JobSoftwareEngineer = "Software Engineer"
	JobSupportEngineer  = "Support Engineer"
	JobSystemsEngineer  = "Systems Engineer"
	JobTester           = "Tester"
	JobDesigner         = "Designer"
)

// JobTitles lists every valid job title.
var JobTitles = []string{
	JobProjectManager,
	JobSoftwareEngineer,
	JobSupportEngineer,
	JobSystemsEngineer,
	JobTester,
	JobDesigner,
}

// ValidJobTitle reports whether s is one of JobTitles.
func ValidJobTitle(s string) bool {
	for _, v := range JobTitles {
		if s == v {
			return true
		}
	}
	return false
}

// User is an account. Password material never leaves the store.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	JobTitle  string    `json:"job_title"`
	CreatedAt time.Time `json:"created_at"`
}

// Ref returns the display summary of u.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Email: u.Email, JobTitle: u.JobTitle}
}

// UserRef is the display summary of a user embedded in other entities.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
}

// UserUpdate is an admin edit of a user. Nil fields are left unchanged.
type UserUpdate struct {
	JobTitle *string `json:"job_title,omitempty"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Session is the result of a successful register or login.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

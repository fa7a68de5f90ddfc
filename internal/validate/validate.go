// Package validate parses untrusted request payloads into typed inputs,
// rejecting constraint violations before any store access.
//
// Constraints live in `validate` struct tags checked by
// go-playground/validator. Failures come back as an
// *apperr.ValidationError keyed by the JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// Length limits. The struct tags below must agree with these.
const (
	TicketTitleMax = 100
	TicketDescMax  = 2048
	ProjectNameMax = 100
	ProjectDescMax = 4096
	CommentMax     = 1000
	UsernameMax    = 8
	PasswordMin    = 6
)

var checker = newChecker()

func newChecker() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("jobtitle", func(fl validator.FieldLevel) bool {
		return protocol.ValidJobTitle(fl.Field().String())
	})
	return v
}

// CreateTicketRequest is the body of POST /api/tickets.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=100,excludesall=<>"`
	Description string `json:"description" validate:"omitempty,max=2048,excludesall=<>"`
	Priority    string `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	Status      string `json:"status" validate:"omitempty,oneof=Open In-Progress 'In Review' Closed"`
	Sizing      int    `json:"sizing" validate:"omitempty,oneof=1 2 3 5 8 13 21"`
	ProjectID   string `json:"project_id" validate:"required"`
	AssignedTo  string `json:"assigned_to"`
}

// Parse validates r and returns the normalized input.
func (r CreateTicketRequest) Parse() (protocol.NewTicket, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	r.AssignedTo = strings.TrimSpace(r.AssignedTo)
	out := protocol.NewTicket{
		Title:       r.Title,
		Description: r.Description,
		ProjectID:   r.ProjectID,
		AssignedTo:  r.AssignedTo,
		Priority:    protocol.TicketPriority(r.Priority),
		Status:      protocol.TicketStatus(r.Status),
		Sizing:      r.Sizing,
	}
	return out, check(r).Err()
}

// CommentRequest is the body of POST /api/tickets/{id}/comments.
type CommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// Parse returns the trimmed comment content.
func (r CommentRequest) Parse() (string, error) {
	r.Content = strings.TrimSpace(r.Content)
	return r.Content, check(r).Err()
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100,excludesall=<>"`
	Description string `json:"description" validate:"omitempty,max=4096,excludesall=<>"`
}

// Parse validates r and returns the normalized input.
func (r CreateProjectRequest) Parse() (protocol.NewProject, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	return protocol.NewProject{Name: r.Name, Description: r.Description}, check(r).Err()
}

// AddMemberRequest is the body of POST /api/projects/{id}/members.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// Parse returns the trimmed user id.
func (r AddMemberRequest) Parse() (string, error) {
	r.UserID = strings.TrimSpace(r.UserID)
	return r.UserID, check(r).Err()
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=8,alpha,lowercase"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	JobTitle string `json:"job_title" validate:"jobtitle"`
}

// Registration is a validated RegisterRequest.
type Registration struct {
	Username string
	Email    string
	Password string
	JobTitle string
}

// Parse validates r. When emailDomain is non-empty the address must
// belong to that domain.
func (r RegisterRequest) Parse(emailDomain string) (Registration, error) {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.TrimSpace(r.Email)
	r.JobTitle = strings.TrimSpace(r.JobTitle)
	if r.JobTitle == "" {
		r.JobTitle = protocol.JobSoftwareEngineer
	}

	v := check(r)
	if !v.Has("email") {
		inDomain(v, r.Email, emailDomain)
	}
	out := Registration{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		JobTitle: r.JobTitle,
	}
	return out, v.Err()
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Parse checks that both credentials are present.
func (r LoginRequest) Parse() (LoginRequest, error) {
	r.Email = strings.TrimSpace(r.Email)
	return r, check(r).Err()
}

// UserUpdate checks an admin edit of a user.
func UserUpdate(u protocol.UserUpdate) error {
	if u.JobTitle == nil {
		return nil
	}
	if err := checker.Var(*u.JobTitle, "jobtitle"); err != nil {
		return apperr.Invalid("job_title", "unknown job title")
	}
	return nil
}

// inDomain records an error on v when domain is set and addr is outside it.
func inDomain(v *apperr.ValidationError, addr, domain string) {
	if domain != "" && !strings.HasSuffix(strings.ToLower(addr), "@"+strings.ToLower(domain)) {
		v.Add("email", fmt.Sprintf("email must end with @%s", domain))
	}
}

// check runs the struct tags on req and converts each failure into a
// field entry.
func check(req any) *apperr.ValidationError {
	v := &apperr.ValidationError{}
	err := checker.Struct(req)
	if err == nil {
		return v
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		v.Add("body", err.Error())
		return v
	}
	for _, fe := range fes {
		v.Add(fe.Field(), message(fe))
	}
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("must be %s characters or less", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "excludesall":
		return "must not contain HTML or script content"
	case "oneof":
		return "must be one of " + strings.Join(oneofValues(fe.Param()), ", ")
	case "email":
		return "invalid email format"
	case "alpha", "lowercase":
		return "must contain only lowercase letters"
	case "jobtitle":
		return "unknown job title"
	}
	return "is invalid"
}

var oneofParam = regexp.MustCompile(`'[^']*'|\S+`)

// oneofValues splits a oneof parameter the way the validator does.
func oneofValues(param string) []string {
	vals := oneofParam.FindAllString(param, -1)
	for i, s := range vals {
		vals[i] = strings.Trim(s, "'")
	}
	return vals
}

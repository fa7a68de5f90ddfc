package protocol

import (
	"bytes"
	"encoding/json"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "Open"
	StatusInProgress TicketStatus = "In-Progress"
	StatusInReview   TicketStatus = "In Review"
	StatusClosed     TicketStatus = "Closed"
)

// Statuses lists every valid status in workflow order.
var Statuses = []TicketStatus{StatusOpen, StatusInProgress, StatusInReview, StatusClosed}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// TicketPriority is the triage priority of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "Low"
	PriorityMedium TicketPriority = "Medium"
	PriorityHigh   TicketPriority = "High"
)

// Priorities lists every valid priority, lowest first.
var Priorities = []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Sizings are the allowed story-point estimates.
var Sizings = []int{1, 2, 3, 5, 8, 13, 21}

// DefaultSizing is used when a ticket is created without an estimate.
const DefaultSizing = 1

// ValidSizing reports whether n is one of Sizings.
func ValidSizing(n int) bool {
	for _, v := range Sizings {
		if n == v {
			return true
		}
	}
	return false
}

// Ticket is a trackable unit of work within a project.
type Ticket struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    TicketPriority `json:"priority"`
	Status      TicketStatus   `json:"status"`
	Sizing      int            `json:"sizing"`
	AssignedTo  *UserRef       `json:"assigned_to"`
	Project     ProjectRef     `json:"project"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AssigneeID returns the assignee's id, or "" when unassigned.
func (t *Ticket) AssigneeID() string {
	if t.AssignedTo == nil {
		return ""
	}
	return t.AssignedTo.ID
}

// NewTicket is the validated input for creating a ticket.
type NewTicket struct {
	Title       string
	Description string
	Priority    TicketPriority // "" means PriorityMedium
	Status      TicketStatus   // "" means StatusOpen
	Sizing      int            // 0 means DefaultSizing
	ProjectID   string
	AssignedTo  string // "" means unassigned
}

// TicketUpdate is a partial update. A nil pointer (or an unset
// AssignedTo) means the field was absent from the request.
type TicketUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *TicketStatus   `json:"status,omitempty"`
	Priority    *TicketPriority `json:"priority,omitempty"`
	Sizing      *int            `json:"sizing,omitempty"`
	AssignedTo  OptionalRef     `json:"assigned_to"`
}

// Empty reports whether the update touches no field.
func (u TicketUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.Sizing == nil && !u.AssignedTo.Set
}

// OptionalRef is a nullable reference that remembers whether it was
// present in a payload. JSON null and "" both decode to an empty ID.
type OptionalRef struct {
	Set bool
	ID  string
}

// Ref returns a present reference to id ("" unassigns).
func Ref(id string) OptionalRef {
	return OptionalRef{Set: true, ID: id}
}

func (o *OptionalRef) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.ID = ""
		return nil
	}
	return json.Unmarshal(data, &o.ID)
}

func (o OptionalRef) MarshalJSON() ([]byte, error) {
	if o.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(o.ID)
}

// TicketFilter constrains ticket list queries. Empty fields impose no
// constraint; present fields are ANDed as exact matches.
type TicketFilter struct {
	ProjectID  string
	AssignedTo string
	Status     TicketStatus
	Priority   TicketPriority
}

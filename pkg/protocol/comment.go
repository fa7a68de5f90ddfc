package protocol

import "time"

// Comment is one entry in a ticket's append-only comment log. System
// comments are written by the lifecycle engine when a tracked field
// changes; their author is the user who made the change.
type Comment struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Content   string    `json:"content"`
	Author    UserRef   `json:"author"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}

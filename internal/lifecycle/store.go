package lifecycle

import (
	"context"
	"time"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// Store is the persistence the engine needs. *store.SQLiteStore
// satisfies it.
type Store interface {
	// ProjectExists reports whether a project exists.
	ProjectExists(ctx context.Context, id string) (bool, error)
	// GetProject returns a project with its members.
	GetProject(ctx context.Context, id string) (*protocol.Project, error)
	// GetUser returns a user by id.
	GetUser(ctx context.Context, id string) (*protocol.User, error)

	InsertTicket(ctx context.Context, t *protocol.Ticket) error
	GetTicket(ctx context.Context, id string) (*protocol.Ticket, error)
	// UpdateTicket merges the present fields of u and returns the stored result.
	UpdateTicket(ctx context.Context, id string, u protocol.TicketUpdate, at time.Time) (*protocol.Ticket, error)
	ListTickets(ctx context.Context, f protocol.TicketFilter) ([]*protocol.Ticket, error)
	// AddAssignedTicket appends to a user's assigned-tickets list.
	AddAssignedTicket(ctx context.Context, userID, ticketID string) error
	AssignedTickets(ctx context.Context, userID string) ([]*protocol.Ticket, error)

	InsertComment(ctx context.Context, c *protocol.Comment) error
	ListComments(ctx context.Context, ticketID string) ([]*protocol.Comment, error)
}

// Package lifecycle owns ticket state: creation, partial updates with a
// derived audit trail, and the append-only comment log.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/store"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// Engine applies ticket operations against a Store.
type Engine struct {
	store  Store
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	// pending audit-comment writes
	audits sync.WaitGroup
}

// New creates an Engine. A nil logger uses slog.Default().
func New(s Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  s,
		logger: logger.With("component", "lifecycle"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Drain blocks until every background audit write started so far has
// finished.
func (e *Engine) Drain() {
	e.audits.Wait()
}

// CreateTicket validates the project reference and persists a new
// ticket. When the ticket is assigned, the assignee's assigned-tickets
// list is updated as a separate best-effort write.
func (e *Engine) CreateTicket(ctx context.Context, in protocol.NewTicket, actorID string) (*protocol.Ticket, error) {
	ok, err := e.store.ProjectExists(ctx, in.ProjectID)
	if err != nil {
		return nil, apperr.Store("create ticket", err)
	}
	if !ok {
		return nil, apperr.NotFound("project", in.ProjectID)
	}

	now := e.now()
	t := &protocol.Ticket{
		ID:          e.newID(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		Sizing:      in.Sizing,
		Project:     protocol.ProjectRef{ID: in.ProjectID},
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !t.Priority.Valid() {
		t.Priority = protocol.PriorityMedium
	}
	if !t.Status.Valid() {
		t.Status = protocol.StatusOpen
	}
	if !protocol.ValidSizing(t.Sizing) {
		t.Sizing = protocol.DefaultSizing
	}
	if in.AssignedTo != "" {
		t.AssignedTo = &protocol.UserRef{ID: in.AssignedTo}
	}

	if err := e.store.InsertTicket(ctx, t); err != nil {
		return nil, apperr.Store("create ticket", err)
	}

	if in.AssignedTo != "" {
		if err := e.store.AddAssignedTicket(ctx, in.AssignedTo, t.ID); err != nil {
			e.logger.Warn("assigned-tickets write failed", "ticket", t.ID, "user", in.AssignedTo, "error", err)
		}
	}

	created, err := e.store.GetTicket(ctx, t.ID)
	if err != nil {
		e.logger.Warn("re-read of created ticket failed", "ticket", t.ID, "error", err)
		return t, nil
	}
	return created, nil
}

// UpdateTicket applies u to the ticket and returns the new state. A new
// assignee gets the ticket added to their assigned-tickets list. For
// each tracked field present in u whose value differs from the prior
// state a system comment authored by actorID is written in the
// background. Audit failures are logged and never returned.
//
// The read of the prior state and the write are not atomic; a concurrent
// update can land in between and be overwritten.
func (e *Engine) UpdateTicket(ctx context.Context, ticketID string, u protocol.TicketUpdate, actorID string) (*protocol.Ticket, error) {
	old, err := e.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, e.mapErr("update ticket", "ticket", ticketID, err)
	}

	updated, err := e.store.UpdateTicket(ctx, ticketID, u, e.now())
	if err != nil {
		return nil, e.mapErr("update ticket", "ticket", ticketID, err)
	}

	if to := u.AssignedTo; to.Set && to.ID != "" && to.ID != old.AssigneeID() {
		if err := e.store.AddAssignedTicket(ctx, to.ID, ticketID); err != nil {
			e.logger.Warn("assigned-tickets write failed", "ticket", ticketID, "user", to.ID, "error", err)
		}
	}

	if entries := auditEntries(old, updated, u); len(entries) > 0 {
		e.writeAudit(ctx, ticketID, actorID, entries)
	}
	return updated, nil
}

// GetTicket returns a ticket with its assignee and its project's full
// member list resolved.
func (e *Engine) GetTicket(ctx context.Context, ticketID string) (*protocol.Ticket, error) {
	t, err := e.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, e.mapErr("get ticket", "ticket", ticketID, err)
	}
	p, err := e.store.GetProject(ctx, t.Project.ID)
	switch {
	case err == nil:
		t.Project.Name = p.Name
		t.Project.Members = p.Members
	case errors.Is(err, store.ErrNotFound):
		e.logger.Warn("ticket references missing project", "ticket", t.ID, "project", t.Project.ID)
	default:
		return nil, apperr.Store("get ticket", err)
	}
	return t, nil
}

// ListTickets returns tickets matching every present filter field,
// newest first. The result is never nil.
func (e *Engine) ListTickets(ctx context.Context, f protocol.TicketFilter) ([]*protocol.Ticket, error) {
	tickets, err := e.store.ListTickets(ctx, f)
	if err != nil {
		return nil, apperr.Store("list tickets", err)
	}
	return tickets, nil
}

// AssignedTickets returns the tickets in a user's assigned-tickets list.
func (e *Engine) AssignedTickets(ctx context.Context, userID string) ([]*protocol.Ticket, error) {
	tickets, err := e.store.AssignedTickets(ctx, userID)
	if err != nil {
		return nil, apperr.Store("assigned tickets", err)
	}
	return tickets, nil
}

func (e *Engine) mapErr(op, kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(kind, id)
	}
	return apperr.Store(op, err)
}

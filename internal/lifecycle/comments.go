package lifecycle

import (
	"context"
	"errors"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/store"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// AddComment appends a human comment to an existing ticket and returns
// it with the author resolved.
func (e *Engine) AddComment(ctx context.Context, ticketID, content, actorID string) (*protocol.Comment, error) {
	if _, err := e.store.GetTicket(ctx, ticketID); err != nil {
		return nil, e.mapErr("add comment", "ticket", ticketID, err)
	}

	c := &protocol.Comment{
		ID:        e.newID(),
		TicketID:  ticketID,
		Content:   content,
		Author:    protocol.UserRef{ID: actorID},
		CreatedAt: e.now(),
	}
	if err := e.store.InsertComment(ctx, c); err != nil {
		return nil, apperr.Store("add comment", err)
	}

	u, err := e.store.GetUser(ctx, actorID)
	switch {
	case err == nil:
		c.Author.Username = u.Username
		c.Author.JobTitle = u.JobTitle
	case !errors.Is(err, store.ErrNotFound):
		e.logger.Warn("comment author lookup failed", "ticket", ticketID, "user", actorID, "error", err)
	}
	return c, nil
}

// Comments returns every comment on a ticket, oldest first.
func (e *Engine) Comments(ctx context.Context, ticketID string) ([]*protocol.Comment, error) {
	comments, err := e.store.ListComments(ctx, ticketID)
	if err != nil {
		return nil, apperr.Store("list comments", err)
	}
	return comments, nil
}

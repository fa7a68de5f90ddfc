package lifecycle

import (
	"context"
	"fmt"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// auditEntries diffs the prior ticket state against the fields present
// in u and returns one comment body per changed tracked field, in the
// order status, priority, assignee. Absent fields never produce an entry.
func auditEntries(old, updated *protocol.Ticket, u protocol.TicketUpdate) []string {
	var entries []string

	if u.Status != nil && *u.Status != old.Status {
		entries = append(entries, fmt.Sprintf("changed status from %q to %q", old.Status, *u.Status))
	}
	if u.Priority != nil && *u.Priority != old.Priority {
		entries = append(entries, fmt.Sprintf("changed priority to %q", *u.Priority))
	}
	if u.AssignedTo.Set && u.AssignedTo.ID != old.AssigneeID() {
		if u.AssignedTo.ID == "" {
			entries = append(entries, "unassigned the ticket")
		} else {
			entries = append(entries, fmt.Sprintf("assigned to %q", assigneeName(updated, u.AssignedTo.ID)))
		}
	}
	return entries
}

// assigneeName is the username of the new assignee, or its id when the
// user could not be resolved.
func assigneeName(t *protocol.Ticket, id string) string {
	if t != nil && t.AssignedTo != nil && t.AssignedTo.ID == id && t.AssignedTo.Username != "" {
		return t.AssignedTo.Username
	}
	return id
}

// writeAudit appends the entries as system comments from a background
// goroutine. The request context's cancellation does not stop it.
func (e *Engine) writeAudit(ctx context.Context, ticketID, actorID string, entries []string) {
	ctx = context.WithoutCancel(ctx)
	e.audits.Add(1)
	go func() {
		defer e.audits.Done()
		for _, content := range entries {
			c := &protocol.Comment{
				ID:        e.newID(),
				TicketID:  ticketID,
				Content:   content,
				Author:    protocol.UserRef{ID: actorID},
				IsSystem:  true,
				CreatedAt: e.now(),
			}
			if err := e.store.InsertComment(ctx, c); err != nil {
				e.logger.Warn("audit comment failed", "ticket", ticketID, "user", actorID, "content", content, "error", err)
			}
		}
	}()
}

package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func TestAddComment(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{})

	c, err := e.AddComment(context.Background(), tk.ID, "rebooted the switch", "u-2")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if c.IsSystem {
		t.Error("human comment flagged as system")
	}
	if c.Author.Username != "bob" || c.Author.JobTitle != protocol.JobTester {
		t.Errorf("author = %+v", c.Author)
	}
	if c.Content != "rebooted the switch" || c.TicketID != tk.ID {
		t.Errorf("got %+v", c)
	}
}

func TestAddCommentMissingTicket(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.AddComment(context.Background(), "ghost", "hello", "u-1"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCommentsInterleavedOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tk := createTicket(t, e, protocol.NewTicket{})

	// Clock steps backwards and forwards so insertion order differs from
	// time order.
	stamps := []time.Time{
		time.Date(2026, 5, 1, 12, 0, 3, 0, time.UTC),
		time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC),
		time.Date(2026, 5, 1, 12, 0, 2, 0, time.UTC),
		time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC),
	}
	i := 0
	e.now = func() time.Time {
		ts := stamps[i%len(stamps)]
		i++
		return ts
	}
	for range stamps {
		if _, err := e.AddComment(ctx, tk.ID, "note", "u-1"); err != nil {
			t.Fatalf("add comment: %v", err)
		}
	}

	comments, err := e.Comments(ctx, tk.ID)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(comments) != len(stamps) {
		t.Fatalf("expected %d comments, got %d", len(stamps), len(comments))
	}
	for i := 1; i < len(comments); i++ {
		if comments[i].CreatedAt.Before(comments[i-1].CreatedAt) {
			t.Errorf("comment %d out of order", i)
		}
	}
}

func TestCommentsMixSystemAndHuman(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tk := createTicket(t, e, protocol.NewTicket{})

	e.AddComment(ctx, tk.ID, "looking into it", "u-1")
	e.UpdateTicket(ctx, tk.ID, protocol.TicketUpdate{Status: statusPtr(protocol.StatusInProgress)}, "u-1")
	e.Drain()

	comments, err := e.Comments(ctx, tk.ID)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].IsSystem || !comments[1].IsSystem {
		t.Errorf("unexpected order: %+v, %+v", comments[0], comments[1])
	}
}

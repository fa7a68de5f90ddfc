package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/store"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates users alice (u-1) and bob (u-2) and project p-1 with
// alice as a member.
func seed(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	for _, u := range []*protocol.User{
		{ID: "u-1", Username: "alice", Email: "alice@example.com", IsActive: true, JobTitle: protocol.JobSupportEngineer, CreatedAt: now},
		{ID: "u-2", Username: "bob", Email: "bob@example.com", IsActive: true, JobTitle: protocol.JobTester, CreatedAt: now},
	} {
		if err := s.InsertUser(ctx, u, "x"); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	p := &protocol.Project{ID: "p-1", Name: "Network", Members: []protocol.UserRef{{ID: "u-1"}}, CreatedAt: now}
	if err := s.InsertProject(ctx, p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	s := newTestStore(t)
	seed(t, s)
	return New(s, nil), s
}

func createTicket(t *testing.T, e *Engine, in protocol.NewTicket) *protocol.Ticket {
	t.Helper()
	if in.ProjectID == "" {
		in.ProjectID = "p-1"
	}
	if in.Title == "" {
		in.Title = "Printer offline"
	}
	tk, err := e.CreateTicket(context.Background(), in, "u-1")
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return tk
}

func systemComments(t *testing.T, e *Engine, ticketID string) []string {
	t.Helper()
	e.Drain()
	comments, err := e.Comments(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	var out []string
	for _, c := range comments {
		if c.IsSystem {
			out = append(out, c.Content)
		}
	}
	return out
}

func statusPtr(s protocol.TicketStatus) *protocol.TicketStatus       { return &s }
func priorityPtr(p protocol.TicketPriority) *protocol.TicketPriority { return &p }
func strPtr(s string) *string                                        { return &s }

func TestCreateTicketDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{})

	if tk.Status != protocol.StatusOpen {
		t.Errorf("status = %q, want Open", tk.Status)
	}
	if tk.Priority != protocol.PriorityMedium {
		t.Errorf("priority = %q, want Medium", tk.Priority)
	}
	if tk.Sizing != protocol.DefaultSizing {
		t.Errorf("sizing = %d", tk.Sizing)
	}
	if tk.AssignedTo != nil {
		t.Errorf("expected unassigned, got %+v", tk.AssignedTo)
	}
	if tk.CreatedBy != "u-1" || tk.Project.Name != "Network" {
		t.Errorf("got %+v", tk)
	}
	if tk.ID == "" || tk.CreatedAt.IsZero() {
		t.Error("id and created_at should be set")
	}
	if got := systemComments(t, e, tk.ID); len(got) != 0 {
		t.Errorf("creation must not produce audit comments: %v", got)
	}
}

func TestCreateTicketHonorsSubmittedStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{Status: protocol.StatusInReview, Priority: protocol.PriorityHigh, Sizing: 8})
	if tk.Status != protocol.StatusInReview || tk.Priority != protocol.PriorityHigh || tk.Sizing != 8 {
		t.Errorf("got %+v", tk)
	}
}

func TestCreateTicketUnknownProject(t *testing.T) {
	e, s := newTestEngine(t)
	_, err := e.CreateTicket(context.Background(), protocol.NewTicket{Title: "x", ProjectID: "nope"}, "u-1")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	all, _ := s.ListTickets(context.Background(), protocol.TicketFilter{})
	if len(all) != 0 {
		t.Errorf("nothing should be persisted, found %d tickets", len(all))
	}
}

func TestCreateTicketWithAssignee(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{AssignedTo: "u-2"})

	if tk.AssignedTo == nil || tk.AssignedTo.Username != "bob" {
		t.Fatalf("assignee = %+v", tk.AssignedTo)
	}
	mine, err := e.AssignedTickets(context.Background(), "u-2")
	if err != nil {
		t.Fatalf("assigned tickets: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != tk.ID {
		t.Errorf("assigned-tickets list = %v", mine)
	}
}

func TestUpdateStatusProducesOneComment(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{Status: protocol.StatusOpen, Priority: protocol.PriorityMedium})

	got, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{Status: statusPtr(protocol.StatusClosed)}, "u-2")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != protocol.StatusClosed {
		t.Errorf("status = %q", got.Status)
	}

	comments := systemComments(t, e, tk.ID)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %v", comments)
	}
	if comments[0] != `changed status from "Open" to "Closed"` {
		t.Errorf("got %q", comments[0])
	}
}

func TestAuditCommentAuthoredByActor(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{})
	e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{Priority: priorityPtr(protocol.PriorityLow)}, "u-2")
	e.Drain()

	comments, _ := e.Comments(context.Background(), tk.ID)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	c := comments[0]
	if !c.IsSystem || c.Author.ID != "u-2" || c.Author.Username != "bob" {
		t.Errorf("got %+v", c)
	}
}

func TestUpdateUnchangedFieldsProduceNothing(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{AssignedTo: "u-2"})

	_, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{
		Status:     statusPtr(tk.Status),
		Priority:   priorityPtr(tk.Priority),
		AssignedTo: protocol.Ref("u-2"),
	}, "u-1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := systemComments(t, e, tk.ID); len(got) != 0 {
		t.Errorf("expected no comments, got %v", got)
	}
}

func TestUpdatePriorityMentionsOnlyNewValue(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{Priority: protocol.PriorityLow})

	e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{Priority: priorityPtr(protocol.PriorityHigh)}, "u-1")

	comments := systemComments(t, e, tk.ID)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %v", comments)
	}
	if !strings.Contains(comments[0], "High") || strings.Contains(comments[0], "Low") {
		t.Errorf("got %q", comments[0])
	}
}

func TestUpdateAssignee(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		ref     protocol.OptionalRef
		want    []string
	}{
		{"assign", "", protocol.Ref("u-2"), []string{`assigned to "bob"`}},
		{"reassign", "u-1", protocol.Ref("u-2"), []string{`assigned to "bob"`}},
		{"unassign with empty string", "u-2", protocol.Ref(""), []string{"unassigned the ticket"}},
		{"unassign already unassigned", "", protocol.Ref(""), nil},
		{"same assignee", "u-2", protocol.Ref("u-2"), nil},
		{"unknown user falls back to id", "", protocol.Ref("u-404"), []string{`assigned to "u-404"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			tk := createTicket(t, e, protocol.NewTicket{AssignedTo: tt.initial})

			got, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{AssignedTo: tt.ref}, "u-1")
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if got.AssigneeID() != tt.ref.ID {
				t.Errorf("assignee = %q, want %q", got.AssigneeID(), tt.ref.ID)
			}

			comments := systemComments(t, e, tk.ID)
			if len(comments) != len(tt.want) {
				t.Fatalf("got %v, want %v", comments, tt.want)
			}
			for i := range tt.want {
				if comments[i] != tt.want[i] {
					t.Errorf("comment %d = %q, want %q", i, comments[i], tt.want[i])
				}
			}
		})
	}
}

func TestUpdateAllTrackedFields(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{})

	_, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{
		Status:     statusPtr(protocol.StatusInProgress),
		Priority:   priorityPtr(protocol.PriorityHigh),
		AssignedTo: protocol.Ref("u-2"),
	}, "u-1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []string{
		`changed status from "Open" to "In-Progress"`,
		`changed priority to "High"`,
		`assigned to "bob"`,
	}
	got := systemComments(t, e, tk.ID)
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("comment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUpdateUntrackedFieldsOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{AssignedTo: "u-2"})

	got, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{Description: strPtr("new text")}, "u-1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Description != "new text" {
		t.Errorf("description = %q", got.Description)
	}
	if got.AssigneeID() != "u-2" {
		t.Error("absent assignee must be left alone")
	}
	if c := systemComments(t, e, tk.ID); len(c) != 0 {
		t.Errorf("expected no comments, got %v", c)
	}
}

func TestUpdateMissingTicket(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.UpdateTicket(context.Background(), "ghost", protocol.TicketUpdate{Status: statusPtr(protocol.StatusClosed)}, "u-1")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

// auditFailingStore rejects every comment insert.
type auditFailingStore struct {
	*store.SQLiteStore
}

func (auditFailingStore) InsertComment(context.Context, *protocol.Comment) error {
	return errors.New("disk full")
}

func TestAuditFailureDoesNotFailUpdate(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	e := New(auditFailingStore{s}, nil)
	tk := createTicket(t, e, protocol.NewTicket{})

	got, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{Status: statusPtr(protocol.StatusClosed)}, "u-1")
	if err != nil {
		t.Fatalf("update should succeed, got %v", err)
	}
	if got.Status != protocol.StatusClosed {
		t.Errorf("status = %q", got.Status)
	}
	e.Drain()

	stored, _ := s.GetTicket(context.Background(), tk.ID)
	if stored.Status != protocol.StatusClosed {
		t.Error("update should be persisted")
	}
}

// assignFailingStore rejects writes to assigned-ticket lists.
type assignFailingStore struct {
	*store.SQLiteStore
}

func (assignFailingStore) AddAssignedTicket(context.Context, string, string) error {
	return errors.New("connection reset")
}

func TestAssignedListFailureDoesNotFailCreate(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	e := New(assignFailingStore{s}, nil)

	tk, err := e.CreateTicket(context.Background(), protocol.NewTicket{Title: "x", ProjectID: "p-1", AssignedTo: "u-2"}, "u-1")
	if err != nil {
		t.Fatalf("create should succeed, got %v", err)
	}
	if tk.AssigneeID() != "u-2" {
		t.Errorf("assignee = %q", tk.AssigneeID())
	}
	mine, _ := s.AssignedTickets(context.Background(), "u-2")
	if len(mine) != 0 {
		t.Errorf("second leg should not have been written: %v", mine)
	}
}

func TestReassignAddsToAssignedList(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	tk := createTicket(t, e, protocol.NewTicket{})

	if _, err := e.UpdateTicket(ctx, tk.ID, protocol.TicketUpdate{AssignedTo: protocol.Ref("u-2")}, "u-1"); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	e.Drain()
	mine, err := s.AssignedTickets(ctx, "u-2")
	if err != nil {
		t.Fatalf("assigned: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != tk.ID {
		t.Errorf("assigned tickets for u-2 = %v", mine)
	}
}

func TestAssignedListFailureDoesNotFailUpdate(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	e := New(assignFailingStore{s}, nil)
	tk := createTicket(t, e, protocol.NewTicket{})

	got, err := e.UpdateTicket(context.Background(), tk.ID, protocol.TicketUpdate{AssignedTo: protocol.Ref("u-2")}, "u-1")
	if err != nil {
		t.Fatalf("update should succeed, got %v", err)
	}
	e.Drain()
	if got.AssigneeID() != "u-2" {
		t.Errorf("assignee = %q", got.AssigneeID())
	}
}

func TestGetTicketResolvesProjectMembers(t *testing.T) {
	e, _ := newTestEngine(t)
	tk := createTicket(t, e, protocol.NewTicket{AssignedTo: "u-2"})

	got, err := e.GetTicket(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Project.Members) != 1 || got.Project.Members[0].Username != "alice" {
		t.Errorf("members = %+v", got.Project.Members)
	}
	if got.AssignedTo.Email != "bob@example.com" {
		t.Errorf("assignee = %+v", got.AssignedTo)
	}

	if _, err := e.GetTicket(context.Background(), "ghost"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestListTicketsFilters(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	open := createTicket(t, e, protocol.NewTicket{Title: "a"})
	closed := createTicket(t, e, protocol.NewTicket{Title: "b", Status: protocol.StatusClosed, Priority: protocol.PriorityHigh})
	newest := createTicket(t, e, protocol.NewTicket{Title: "c", Priority: protocol.PriorityHigh})

	all, err := e.ListTickets(ctx, protocol.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != newest.ID || all[2].ID != open.ID {
		t.Errorf("expected newest first, got %v", ids(all))
	}

	onlyOpen, _ := e.ListTickets(ctx, protocol.TicketFilter{Status: protocol.StatusOpen})
	for _, tk := range onlyOpen {
		if tk.Status != protocol.StatusOpen {
			t.Errorf("non-open ticket %s in result", tk.ID)
		}
	}
	if len(onlyOpen) != 2 {
		t.Errorf("expected 2 open, got %d", len(onlyOpen))
	}

	both, _ := e.ListTickets(ctx, protocol.TicketFilter{Status: protocol.StatusOpen, Priority: protocol.PriorityHigh})
	if len(both) != 1 || both[0].ID != newest.ID {
		t.Errorf("intersection = %v", ids(both))
	}

	none, _ := e.ListTickets(ctx, protocol.TicketFilter{ProjectID: "p-2"})
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty slice, got %v", none)
	}

	onlyClosed, _ := e.ListTickets(ctx, protocol.TicketFilter{Status: protocol.StatusClosed, ProjectID: "p-1"})
	if len(onlyClosed) != 1 || onlyClosed[0].ID != closed.ID {
		t.Errorf("closed = %v", ids(onlyClosed))
	}
}

func ids(ts []*protocol.Ticket) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

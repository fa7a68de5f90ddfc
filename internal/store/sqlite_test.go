package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *SQLiteStore, id, username string) *protocol.User {
	t.Helper()
	u := &protocol.User{
		ID: id, Username: username, Email: username + "@example.com",
		IsActive: true, JobTitle: protocol.JobSupportEngineer, CreatedAt: base,
	}
	if err := s.InsertUser(context.Background(), u, "hash-"+id); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return u
}

func seedProject(t *testing.T, s *SQLiteStore, id string, members ...string) *protocol.Project {
	t.Helper()
	p := &protocol.Project{ID: id, Name: "Project " + id, CreatedAt: base}
	for _, m := range members {
		p.Members = append(p.Members, protocol.UserRef{ID: m})
	}
	if err := s.InsertProject(context.Background(), p); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	return p
}

func seedTicket(t *testing.T, s *SQLiteStore, id, projectID string, created time.Time, mutate func(*protocol.Ticket)) {
	t.Helper()
	tk := &protocol.Ticket{
		ID: id, Title: "Ticket " + id, Priority: protocol.PriorityMedium, Status: protocol.StatusOpen,
		Sizing: 1, Project: protocol.ProjectRef{ID: projectID}, CreatedBy: "u-1",
		CreatedAt: created, UpdatedAt: created,
	}
	if mutate != nil {
		mutate(tk)
	}
	if err := s.InsertTicket(context.Background(), tk); err != nil {
		t.Fatalf("insert ticket: %v", err)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedUser(t, s, "u-2", "bob")

	got, err := s.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "alice" || !got.IsActive || got.JobTitle != protocol.JobSupportEngineer {
		t.Errorf("got %+v", got)
	}

	if _, err := s.GetUser(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	dup := &protocol.User{ID: "u-3", Username: "carol", Email: "ALICE@example.com", CreatedAt: base}
	if err := s.InsertUser(ctx, dup, "x"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for email clash, got %v", err)
	}

	u, hash, err := s.UserCredentials(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if u.ID != "u-2" || hash != "hash-u-2" {
		t.Errorf("got %s %s", u.ID, hash)
	}
}

func TestSearchAndUpdateUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedUser(t, s, "u-2", "alina")
	seedUser(t, s, "u-3", "bob")

	found, err := s.SearchUsers(ctx, "AL", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}

	inactive := false
	admin := true
	updated, err := s.UpdateUser(ctx, "u-2", protocol.UserUpdate{IsActive: &inactive, IsAdmin: &admin})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsActive || !updated.IsAdmin {
		t.Errorf("got %+v", updated)
	}

	found, _ = s.SearchUsers(ctx, "al", 10)
	if len(found) != 1 || found[0].Username != "alice" {
		t.Errorf("deactivated users should not be found: %v", found)
	}

	if _, err := s.UpdateUser(ctx, "ghost", protocol.UserUpdate{IsAdmin: &admin}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	all, _ := s.ListUsers(ctx)
	if len(all) != 3 {
		t.Errorf("expected 3 users, got %d", len(all))
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertSession(ctx, "d1", "u-1", base, base.Add(time.Hour)); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	if err := s.InsertSession(ctx, "d2", "u-1", base, base.Add(time.Minute)); err != nil {
		t.Fatalf("insert session: %v", err)
	}

	uid, err := s.SessionUser(ctx, "d1", base.Add(30*time.Minute))
	if err != nil || uid != "u-1" {
		t.Fatalf("session user = %q, %v", uid, err)
	}
	if _, err := s.SessionUser(ctx, "d1", base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session should not resolve: %v", err)
	}

	n, err := s.PurgeSessions(ctx, base.Add(10*time.Minute))
	if err != nil || n != 1 {
		t.Errorf("purged %d, %v", n, err)
	}

	s.DeleteSession(ctx, "d1")
	if _, err := s.SessionUser(ctx, "d1", base); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session should not resolve: %v", err)
	}
}

func TestProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedUser(t, s, "u-2", "bob")
	seedProject(t, s, "p-1", "u-1")

	exists, err := s.ProjectExists(ctx, "p-1")
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
	if exists, _ := s.ProjectExists(ctx, "p-x"); exists {
		t.Error("unknown project should not exist")
	}

	if err := s.AddProjectMember(ctx, "p-1", "u-2", base.Add(time.Minute)); err != nil {
		t.Fatalf("add member: %v", err)
	}
	p, err := s.GetProject(ctx, "p-1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(p.Members) != 2 || p.Members[0].Username != "alice" || p.Members[1].Email != "bob@example.com" {
		t.Errorf("members = %+v", p.Members)
	}

	if err := s.RemoveProjectMember(ctx, "p-1", "u-2"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if err := s.RemoveProjectMember(ctx, "p-1", "u-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second removal should be ErrNotFound, got %v", err)
	}

	if _, err := s.GetProject(ctx, "p-x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsForMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")

	older := &protocol.Project{ID: "p-old", Name: "Old", Members: []protocol.UserRef{{ID: "u-1"}}, CreatedAt: base}
	newer := &protocol.Project{ID: "p-new", Name: "New", Members: []protocol.UserRef{{ID: "u-1"}}, CreatedAt: base.Add(time.Hour)}
	other := &protocol.Project{ID: "p-other", Name: "Other", CreatedAt: base}
	for _, p := range []*protocol.Project{older, newer, other} {
		if err := s.InsertProject(ctx, p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := s.ListProjectsForMember(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p-new" || got[1].ID != "p-old" {
		t.Errorf("got %v", got)
	}
	if len(got[0].Members) != 1 {
		t.Errorf("members not resolved: %+v", got[0].Members)
	}
}

func TestUserProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AddUserProject(ctx, "u-1", "p-1")
	s.AddUserProject(ctx, "u-1", "p-2")
	s.AddUserProject(ctx, "u-1", "p-1")

	ids, err := s.UserProjectIDs(ctx, "u-1")
	if err != nil {
		t.Fatalf("user projects: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}
	s.RemoveUserProject(ctx, "u-1", "p-1")
	ids, _ = s.UserProjectIDs(ctx, "u-1")
	if len(ids) != 1 || ids[0] != "p-2" {
		t.Errorf("got %v", ids)
	}
}

func TestTicketInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedProject(t, s, "p-1", "u-1")
	seedTicket(t, s, "t-1", "p-1", base, func(tk *protocol.Ticket) {
		tk.AssignedTo = &protocol.UserRef{ID: "u-1"}
		tk.Description = "VPN drops every hour"
	})

	got, err := s.GetTicket(ctx, "t-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AssignedTo == nil || got.AssignedTo.Username != "alice" {
		t.Errorf("assignee = %+v", got.AssignedTo)
	}
	if got.Project.Name != "Project p-1" {
		t.Errorf("project = %+v", got.Project)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v", got.CreatedAt)
	}

	if _, err := s.GetTicket(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTicketUpdateMergesPresentFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedProject(t, s, "p-1")
	seedTicket(t, s, "t-1", "p-1", base, func(tk *protocol.Ticket) {
		tk.AssignedTo = &protocol.UserRef{ID: "u-1"}
	})

	closed := protocol.StatusClosed
	got, err := s.UpdateTicket(ctx, "t-1", protocol.TicketUpdate{Status: &closed}, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != protocol.StatusClosed || got.Priority != protocol.PriorityMedium {
		t.Errorf("got %+v", got)
	}
	if got.AssigneeID() != "u-1" {
		t.Error("absent assigned_to must not change the assignee")
	}
	if !got.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("updated_at = %v", got.UpdatedAt)
	}

	got, err = s.UpdateTicket(ctx, "t-1", protocol.TicketUpdate{AssignedTo: protocol.Ref("")}, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if got.AssignedTo != nil {
		t.Errorf("expected unassigned, got %+v", got.AssignedTo)
	}

	if _, err := s.UpdateTicket(ctx, "ghost", protocol.TicketUpdate{Status: &closed}, base); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListTickets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProject(t, s, "p-1")
	seedProject(t, s, "p-2")

	for i := range 4 {
		i := i
		project := "p-1"
		if i%2 == 1 {
			project = "p-2"
		}
		seedTicket(t, s, fmt.Sprintf("t-%d", i), project, base.Add(time.Duration(i)*time.Minute), func(tk *protocol.Ticket) {
			if i >= 2 {
				tk.Status = protocol.StatusClosed
				tk.AssignedTo = &protocol.UserRef{ID: "u-1"}
			}
		})
	}

	all, err := s.ListTickets(ctx, protocol.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 tickets, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("tickets not newest first at %d", i)
		}
	}

	closed, _ := s.ListTickets(ctx, protocol.TicketFilter{Status: protocol.StatusClosed})
	if len(closed) != 2 {
		t.Errorf("expected 2 closed, got %d", len(closed))
	}

	both, _ := s.ListTickets(ctx, protocol.TicketFilter{Status: protocol.StatusClosed, ProjectID: "p-1"})
	if len(both) != 1 || both[0].ID != "t-2" {
		t.Errorf("intersection = %v", both)
	}

	mine, _ := s.ListTickets(ctx, protocol.TicketFilter{AssignedTo: "u-1"})
	if len(mine) != 2 {
		t.Errorf("expected 2 assigned, got %d", len(mine))
	}

	none, _ := s.ListTickets(ctx, protocol.TicketFilter{Priority: protocol.PriorityHigh})
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}
}

func TestAssignedTickets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProject(t, s, "p-1")
	seedTicket(t, s, "t-1", "p-1", base, nil)
	seedTicket(t, s, "t-2", "p-1", base.Add(time.Minute), nil)
	seedTicket(t, s, "t-3", "p-1", base.Add(2*time.Minute), nil)

	s.AddAssignedTicket(ctx, "u-1", "t-1")
	s.AddAssignedTicket(ctx, "u-1", "t-3")

	got, err := s.AssignedTickets(ctx, "u-1")
	if err != nil {
		t.Fatalf("assigned: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t-3" || got[1].ID != "t-1" {
		t.Errorf("got %v", got)
	}
}

func TestCommentsOrderedOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")

	// Inserted out of chronological order.
	offsets := []time.Duration{3 * time.Minute, time.Minute, 2 * time.Minute, time.Minute}
	for i, off := range offsets {
		c := &protocol.Comment{
			ID: fmt.Sprintf("c-%d", i), TicketID: "t-1", Content: fmt.Sprintf("comment %d", i),
			Author: protocol.UserRef{ID: "u-1"}, IsSystem: i == 0, CreatedAt: base.Add(off),
		}
		if err := s.InsertComment(ctx, c); err != nil {
			t.Fatalf("insert comment: %v", err)
		}
	}

	got, err := s.ListComments(ctx, "t-1")
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 comments, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Errorf("comment %d is older than comment %d", i, i-1)
		}
	}
	if got[0].ID != "c-1" || got[1].ID != "c-3" {
		t.Errorf("ties should keep insertion order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[3].Author.Username != "alice" || got[3].Author.JobTitle != protocol.JobSupportEngineer {
		t.Errorf("author = %+v", got[3].Author)
	}
	if !got[3].IsSystem {
		t.Error("expected system flag to round-trip")
	}

	empty, _ := s.ListComments(ctx, "t-none")
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty slice, got %v", empty)
	}
}

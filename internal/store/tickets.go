package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const ticketSelect = `
	SELECT t.id, t.title, t.description, t.priority, t.status, t.sizing,
		COALESCE(t.assigned_to, ''), COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.job_title, ''),
		t.project_id, COALESCE(p.name, ''), t.created_by, t.created_at, t.updated_at
	FROM tickets t
	LEFT JOIN users u ON u.id = t.assigned_to
	LEFT JOIN projects p ON p.id = t.project_id`

// InsertTicket persists a new ticket.
func (s *SQLiteStore) InsertTicket(ctx context.Context, t *protocol.Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, title, description, priority, status, sizing, assigned_to, project_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), t.Sizing,
		nullable(t.AssigneeID()), t.Project.ID, t.CreatedBy, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store: insert ticket: %w", err)
	}
	return nil
}

// GetTicket returns a ticket with its assignee and project name resolved.
func (s *SQLiteStore) GetTicket(ctx context.Context, id string) (*protocol.Ticket, error) {
	row := s.db.QueryRowContext(ctx, ticketSelect+` WHERE t.id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		return nil, fmt.Errorf("store: get ticket: %w", notFound(err))
	}
	return t, nil
}

// UpdateTicket shallow-merges the present fields of u onto the stored
// ticket and returns the result. It does not read the previous state;
// concurrent updates are last-write-wins per field.
func (s *SQLiteStore) UpdateTicket(ctx context.Context, id string, u protocol.TicketUpdate, at time.Time) (*protocol.Ticket, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(at)}
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*u.Priority))
	}
	if u.Sizing != nil {
		sets = append(sets, "sizing = ?")
		args = append(args, *u.Sizing)
	}
	if u.AssignedTo.Set {
		sets = append(sets, "assigned_to = ?")
		args = append(args, nullable(u.AssignedTo.ID))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE tickets SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}
	if err := mustAffect(res); err != nil {
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}
	return s.GetTicket(ctx, id)
}

// ListTickets returns tickets matching every present filter field,
// newest first.
func (s *SQLiteStore) ListTickets(ctx context.Context, f protocol.TicketFilter) ([]*protocol.Ticket, error) {
	query := ticketSelect + ` WHERE 1=1`
	var args []any

	if f.ProjectID != "" {
		query += " AND t.project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.AssignedTo != "" {
		query += " AND t.assigned_to = ?"
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		query += " AND t.status = ?"
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		query += " AND t.priority = ?"
		args = append(args, string(f.Priority))
	}
	query += " ORDER BY t.created_at DESC, t.rowid DESC"

	return s.queryTickets(ctx, query, args...)
}

// AddAssignedTicket appends ticketID to the user's assigned-tickets list.
func (s *SQLiteStore) AddAssignedTicket(ctx context.Context, userID, ticketID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO user_tickets (user_id, ticket_id) VALUES (?, ?)`, userID, ticketID)
	if err != nil {
		return fmt.Errorf("store: add assigned ticket: %w", err)
	}
	return nil
}

// AssignedTickets returns the tickets in the user's assigned-tickets
// list, newest first.
func (s *SQLiteStore) AssignedTickets(ctx context.Context, userID string) ([]*protocol.Ticket, error) {
	return s.queryTickets(ctx, ticketSelect+`
		JOIN user_tickets ut ON ut.ticket_id = t.id
		WHERE ut.user_id = ?
		ORDER BY t.created_at DESC, t.rowid DESC`, userID)
}

func (s *SQLiteStore) queryTickets(ctx context.Context, query string, args ...any) ([]*protocol.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*protocol.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list tickets scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func scanTicket(s scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var priority, status, createdAt, updatedAt string
	var assignee protocol.UserRef

	err := s.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &t.Sizing,
		&assignee.ID, &assignee.Username, &assignee.Email, &assignee.JobTitle,
		&t.Project.ID, &t.Project.Name, &t.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Priority = protocol.TicketPriority(priority)
	t.Status = protocol.TicketStatus(status)
	if assignee.ID != "" {
		t.AssignedTo = &assignee
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

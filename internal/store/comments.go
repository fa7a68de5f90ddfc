package store

import (
	"context"
	"fmt"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// InsertComment appends a comment. Comments are never updated or deleted.
func (s *SQLiteStore) InsertComment(ctx context.Context, c *protocol.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, ticket_id, author_id, content, is_system, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.TicketID, c.Author.ID, c.Content, boolInt(c.IsSystem), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: insert comment: %w", err)
	}
	return nil
}

// ListComments returns a ticket's comments oldest first, with authors
// resolved. Comments sharing a timestamp keep insertion order.
func (s *SQLiteStore) ListComments(ctx context.Context, ticketID string) ([]*protocol.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.ticket_id, c.content, c.is_system, c.created_at,
			c.author_id, COALESCE(u.username, ''), COALESCE(u.job_title, '')
		FROM comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.ticket_id = ?
		ORDER BY c.created_at ASC, c.rowid ASC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("store: list comments: %w", err)
	}
	defer rows.Close()

	comments := []*protocol.Comment{}
	for rows.Next() {
		var c protocol.Comment
		var isSystem int
		var createdAt string
		if err := rows.Scan(&c.ID, &c.TicketID, &c.Content, &isSystem, &createdAt,
			&c.Author.ID, &c.Author.Username, &c.Author.JobTitle); err != nil {
			return nil, fmt.Errorf("store: list comments scan: %w", err)
		}
		c.IsSystem = isSystem == 1
		c.CreatedAt = parseTime(createdAt)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// InsertProject creates a project together with its initial members.
// The project row and its member rows are written atomically; they are
// one entity. The users' own project lists are not touched.
func (s *SQLiteStore) InsertProject(ctx context.Context, p *protocol.Project) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, description, created_at) VALUES (?, ?, ?, ?)
		`, p.ID, p.Name, p.Description, formatTime(p.CreatedAt))
		if err != nil {
			return err
		}
		for _, m := range p.Members {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO project_members (project_id, user_id, added_at) VALUES (?, ?, ?)
			`, p.ID, m.ID, formatTime(p.CreatedAt))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: insert project: %w", err)
	}
	return nil
}

// ProjectExists reports whether a project with id exists.
func (s *SQLiteStore) ProjectExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: project exists: %w", err)
	}
	return n > 0, nil
}

// GetProject returns a project with its members resolved.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*protocol.Project, error) {
	var p protocol.Project
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", notFound(err))
	}
	p.CreatedAt = parseTime(createdAt)

	members, err := s.ProjectMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Members = members
	return &p, nil
}

// ProjectMembers returns the members of a project in the order they joined.
func (s *SQLiteStore) ProjectMembers(ctx context.Context, projectID string) ([]protocol.UserRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.user_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.job_title, '')
		FROM project_members m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ?
		ORDER BY m.added_at, m.rowid
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: project members: %w", err)
	}
	defer rows.Close()

	members := []protocol.UserRef{}
	for rows.Next() {
		var m protocol.UserRef
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.JobTitle); err != nil {
			return nil, fmt.Errorf("store: project members scan: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListProjectsForMember returns the projects whose member list contains
// userID, newest first, with members resolved.
func (s *SQLiteStore) ListProjectsForMember(ctx context.Context, userID string) ([]*protocol.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.created_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC, p.rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}

	projects := []*protocol.Project{}
	for rows.Next() {
		var p protocol.Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: list projects scan: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}

	for _, p := range projects {
		if p.Members, err = s.ProjectMembers(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// AddProjectMember appends userID to the project's member list.
func (s *SQLiteStore) AddProjectMember(ctx context.Context, projectID, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO project_members (project_id, user_id, added_at) VALUES (?, ?, ?)
	`, projectID, userID, formatTime(at))
	if err != nil {
		return fmt.Errorf("store: add member: %w", err)
	}
	return nil
}

// RemoveProjectMember drops userID from the project's member list.
// Returns ErrNotFound when the user was not a member.
func (s *SQLiteStore) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return fmt.Errorf("store: remove member: %w", err)
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("store: remove member: %w", err)
	}
	return nil
}

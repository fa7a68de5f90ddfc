package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const userColumns = "id, username, email, is_admin, is_active, job_title, created_at"

// InsertUser creates a user with the given password hash. A clashing
// username or email yields ErrDuplicate.
func (s *SQLiteStore) InsertUser(ctx context.Context, u *protocol.User, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_admin, is_active, job_title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.Email, passwordHash, boolInt(u.IsAdmin), boolInt(u.IsActive), u.JobTitle, formatTime(u.CreatedAt))
	if isUnique(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("store: insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*protocol.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", notFound(err))
	}
	return u, nil
}

// UserCredentials returns the user with the given email and its password hash.
func (s *SQLiteStore) UserCredentials(ctx context.Context, email string) (*protocol.User, string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE email = ?`, email)
	var u protocol.User
	var isAdmin, isActive int
	var createdAt, hash string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &isAdmin, &isActive, &u.JobTitle, &createdAt, &hash)
	if err != nil {
		return nil, "", fmt.Errorf("store: user credentials: %w", notFound(err))
	}
	u.IsAdmin = isAdmin == 1
	u.IsActive = isActive == 1
	u.CreatedAt = parseTime(createdAt)
	return &u, hash, nil
}

// ListUsers returns every user ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*protocol.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
}

// SearchUsers returns active users whose username contains query,
// case-insensitively.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string, limit int) ([]*protocol.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE is_active = 1 AND lower(username) LIKE ?
		ORDER BY username LIMIT ?
	`, pattern, limit)
}

// UpdateUser applies the non-nil fields of u and returns the result.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, u protocol.UserUpdate) (*protocol.User, error) {
	var sets []string
	var args []any
	if u.JobTitle != nil {
		sets = append(sets, "job_title = ?")
		args = append(args, *u.JobTitle)
	}
	if u.IsAdmin != nil {
		sets = append(sets, "is_admin = ?")
		args = append(args, boolInt(*u.IsAdmin))
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolInt(*u.IsActive))
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("store: update user: %w", err)
		}
		if err := mustAffect(res); err != nil {
			return nil, fmt.Errorf("store: update user: %w", err)
		}
	}
	return s.GetUser(ctx, id)
}

// AddUserProject appends projectID to the user's project list.
func (s *SQLiteStore) AddUserProject(ctx context.Context, userID, projectID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO user_projects (user_id, project_id) VALUES (?, ?)`, userID, projectID)
	if err != nil {
		return fmt.Errorf("store: add user project: %w", err)
	}
	return nil
}

// RemoveUserProject drops projectID from the user's project list.
func (s *SQLiteStore) RemoveUserProject(ctx context.Context, userID, projectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_projects WHERE user_id = ? AND project_id = ?`, userID, projectID)
	if err != nil {
		return fmt.Errorf("store: remove user project: %w", err)
	}
	return nil
}

// UserProjectIDs returns the ids in the user's project list.
func (s *SQLiteStore) UserProjectIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id FROM user_projects WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: user projects: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: user projects scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]*protocol.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	users := []*protocol.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list users scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(s scannable) (*protocol.User, error) {
	var u protocol.User
	var isAdmin, isActive int
	var createdAt string
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &isAdmin, &isActive, &u.JobTitle, &createdAt); err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin == 1
	u.IsActive = isActive == 1
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

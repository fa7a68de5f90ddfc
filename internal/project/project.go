// Package project manages projects and their member lists.
package project

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/store"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// Store is the persistence the service needs.
type Store interface {
	InsertProject(ctx context.Context, p *protocol.Project) error
	GetProject(ctx context.Context, id string) (*protocol.Project, error)
	ListProjectsForMember(ctx context.Context, userID string) ([]*protocol.Project, error)
	AddProjectMember(ctx context.Context, projectID, userID string, at time.Time) error
	RemoveProjectMember(ctx context.Context, projectID, userID string) error
	GetUser(ctx context.Context, id string) (*protocol.User, error)
	AddUserProject(ctx context.Context, userID, projectID string) error
	RemoveUserProject(ctx context.Context, userID, projectID string) error
}

// Service implements project operations. Membership is recorded twice,
// on the project and on the user; the user side is written second and
// its failure is logged rather than returned.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service. A nil logger uses slog.Default().
func New(s Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logger.With("component", "project"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create makes a project with the actor as its first member.
func (s *Service) Create(ctx context.Context, in protocol.NewProject, actorID string) (*protocol.Project, error) {
	p := &protocol.Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Members:     []protocol.UserRef{{ID: actorID}},
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertProject(ctx, p); err != nil {
		return nil, apperr.Store("create project", err)
	}
	if err := s.store.AddUserProject(ctx, actorID, p.ID); err != nil {
		s.logger.Warn("user project list write failed", "project", p.ID, "user", actorID, "error", err)
	}
	return s.Get(ctx, p.ID)
}

// ListForMember returns the projects userID belongs to, newest first.
func (s *Service) ListForMember(ctx context.Context, userID string) ([]*protocol.Project, error) {
	projects, err := s.store.ListProjectsForMember(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list projects", err)
	}
	return projects, nil
}

// Get returns a project with its members resolved.
func (s *Service) Get(ctx context.Context, id string) (*protocol.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("project", id)
	}
	if err != nil {
		return nil, apperr.Store("get project", err)
	}
	return p, nil
}

// AddMember adds userID to the project.
func (s *Service) AddMember(ctx context.Context, projectID, userID string) (*protocol.Project, error) {
	p, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user", userID)
		}
		return nil, apperr.Store("add member", err)
	}
	if p.HasMember(userID) {
		return nil, apperr.Conflict("user is already a member of this project")
	}

	if err := s.store.AddProjectMember(ctx, projectID, userID, s.now()); err != nil {
		return nil, apperr.Store("add member", err)
	}
	if err := s.store.AddUserProject(ctx, userID, projectID); err != nil {
		s.logger.Warn("user project list write failed", "project", projectID, "user", userID, "error", err)
	}
	return s.Get(ctx, projectID)
}

// RemoveMember removes userID from the project.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID string) (*protocol.Project, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.store.RemoveProjectMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("member", userID)
		}
		return nil, apperr.Store("remove member", err)
	}
	if err := s.store.RemoveUserProject(ctx, userID, projectID); err != nil {
		s.logger.Warn("user project list removal failed", "project", projectID, "user", userID, "error", err)
	}
	return s.Get(ctx, projectID)
}

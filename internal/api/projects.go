package api

import (
	"net/http"

	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
	var req validate.CreateProjectRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.Parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Projects.Create(r.Context(), in, actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
	projects, err := s.svc.Projects.ListForMember(r.Context(), actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	p, err := s.svc.Projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	var req validate.AddMemberRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	userID, err := req.Parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Projects.AddMember(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	p, err := s.svc.Projects.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

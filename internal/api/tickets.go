package api

import (
	"net/http"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	q := r.URL.Query()
	f := protocol.TicketFilter{
		ProjectID:  q.Get("project_id"),
		AssignedTo: q.Get("assigned_to"),
		Status:     protocol.TicketStatus(q.Get("status")),
		Priority:   protocol.TicketPriority(q.Get("priority")),
	}

	var v apperr.ValidationError
	if f.Status != "" && !f.Status.Valid() {
		v.Add("status", "unknown status")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		v.Add("priority", "unknown priority")
	}
	if err := v.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	tickets, err := s.svc.Tickets.ListTickets(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
	var req validate.CreateTicketRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.Parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.svc.Tickets.CreateTicket(r.Context(), in, actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	t, err := s.svc.Tickets.GetTicket(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTicket serves PUT and PATCH alike: both are partial updates.
func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
	var u protocol.TicketUpdate
	if err := decode(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.svc.Tickets.UpdateTicket(r.Context(), r.PathValue("id"), u, actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	comments, err := s.svc.Tickets.Comments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
	var req validate.CommentRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	content, err := req.Parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.svc.Tickets.AddComment(r.Context(), r.PathValue("id"), content, actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleMyTickets(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
	tickets, err := s.svc.Tickets.AssignedTickets(r.Context(), actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

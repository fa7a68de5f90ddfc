package api

import (
	"net/http"

	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req validate.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.Accounts.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req validate.LoginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.Accounts.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	token, _ := bearerToken(r)
	if err := s.svc.Accounts.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, actor *protocol.User) {
	writeJSON(w, http.StatusOK, actor)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	users, err := s.svc.Accounts.SearchUsers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	users, err := s.svc.Accounts.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	var u protocol.UserUpdate
	if err := decode(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.svc.Accounts.UpdateUser(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

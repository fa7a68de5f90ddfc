package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/logbuf"
	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Tickets is the ticket lifecycle engine as seen by the API.
type Tickets interface {
	CreateTicket(ctx context.Context, in protocol.NewTicket, actorID string) (*protocol.Ticket, error)
	UpdateTicket(ctx context.Context, id string, u protocol.TicketUpdate, actorID string) (*protocol.Ticket, error)
	GetTicket(ctx context.Context, id string) (*protocol.Ticket, error)
	ListTickets(ctx context.Context, f protocol.TicketFilter) ([]*protocol.Ticket, error)
	AssignedTickets(ctx context.Context, userID string) ([]*protocol.Ticket, error)
	AddComment(ctx context.Context, ticketID, content, actorID string) (*protocol.Comment, error)
	Comments(ctx context.Context, ticketID string) ([]*protocol.Comment, error)
}

// Projects manages projects and members.
type Projects interface {
	Create(ctx context.Context, in protocol.NewProject, actorID string) (*protocol.Project, error)
	ListForMember(ctx context.Context, userID string) ([]*protocol.Project, error)
	Get(ctx context.Context, id string) (*protocol.Project, error)
	AddMember(ctx context.Context, projectID, userID string) (*protocol.Project, error)
	RemoveMember(ctx context.Context, projectID, userID string) (*protocol.Project, error)
}

// Accounts handles registration, sessions and user administration.
type Accounts interface {
	Register(ctx context.Context, req validate.RegisterRequest) (*protocol.Session, error)
	Login(ctx context.Context, req validate.LoginRequest) (*protocol.Session, error)
	Authenticate(ctx context.Context, token string) (*protocol.User, error)
	Logout(ctx context.Context, token string) error
	SearchUsers(ctx context.Context, query string) ([]*protocol.User, error)
	ListUsers(ctx context.Context) ([]*protocol.User, error)
	UpdateUser(ctx context.Context, id string, u protocol.UserUpdate) (*protocol.User, error)
}

// LogQuerier reads captured log entries.
type LogQuerier interface {
	Query(f logbuf.Filter) []logbuf.Entry
}

// Services bundles the collaborators the server calls into. Logs may be nil.
type Services struct {
	Tickets  Tickets
	Projects Projects
	Accounts Accounts
	Logs     LogQuerier
}

// Config holds API server configuration.
type Config struct {
	Host          string
	Port          int
	AllowedOrigin string // "" allows any origin
	Gzip          bool
}

// Server is the helpdesk REST API server.
type Server struct {
	svc    Services
	cfg    Config
	logger *slog.Logger
	srv    *http.Server
}

// authedHandler receives the authenticated caller explicitly.
type authedHandler func(w http.ResponseWriter, r *http.Request, actor *protocol.User)

// NewServer creates a new API server.
func NewServer(svc Services, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.requireAuth(s.handleLogout))

	mux.HandleFunc("GET /api/users/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("GET /api/users/me/tickets", s.requireAuth(s.handleMyTickets))
	mux.HandleFunc("GET /api/users/search", s.requireAuth(s.handleSearchUsers))
	mux.HandleFunc("GET /api/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("PATCH /api/users/{id}", s.requireAdmin(s.handleUpdateUser))

	mux.HandleFunc("POST /api/projects", s.requireAuth(s.handleCreateProject))
	mux.HandleFunc("GET /api/projects", s.requireAuth(s.handleListProjects))
	mux.HandleFunc("GET /api/projects/{id}", s.requireAuth(s.handleGetProject))
	mux.HandleFunc("POST /api/projects/{id}/members", s.requireAuth(s.handleAddMember))
	mux.HandleFunc("DELETE /api/projects/{id}/members/{userId}", s.requireAuth(s.handleRemoveMember))

	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("POST /api/tickets", s.requireAuth(s.handleCreateTicket))
	mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("PUT /api/tickets/{id}", s.requireAuth(s.handleUpdateTicket))
	mux.HandleFunc("PATCH /api/tickets/{id}", s.requireAuth(s.handleUpdateTicket))
	mux.HandleFunc("GET /api/tickets/{id}/comments", s.requireAuth(s.handleListComments))
	mux.HandleFunc("POST /api/tickets/{id}/comments", s.requireAuth(s.handleAddComment))

	mux.HandleFunc("GET /api/logs", s.requireAdmin(s.handleGetLogs))

	var h http.Handler = s.corsMiddleware(mux)
	if cfg.Gzip {
		h = gzhttp.GzipHandler(h)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}
		actor, err := s.svc.Accounts.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, actor)
	}
}

func (s *Server) requireAdmin(next authedHandler) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request, actor *protocol.User) {
		if !actor.IsAdmin {
			s.writeError(w, r, apperr.ErrForbidden)
			return
		}
		next(w, r, actor)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

type errorBody struct {
	Error  string              `json:"error"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

// writeError maps the error taxonomy onto status codes. Anything
// unrecognized is logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *apperr.ValidationError
		missing  *apperr.NotFoundError
		conflict *apperr.ConflictError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: invalid.Fields})
	case errors.As(err, &missing):
		writeJSON(w, http.StatusNotFound, errorBody{Error: missing.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: conflict.Message})
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("body", "invalid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

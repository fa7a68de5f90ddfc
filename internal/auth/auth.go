// Package auth handles accounts and sessions. Session tokens are opaque
// random strings; only their BLAKE3 digest is persisted.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/store"
	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// DefaultSessionTTL is used when Options.SessionTTL is zero.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SearchLimit caps SearchUsers results.
const SearchLimit = 10

// Store is the persistence the service needs.
type Store interface {
	InsertUser(ctx context.Context, u *protocol.User, passwordHash string) error
	GetUser(ctx context.Context, id string) (*protocol.User, error)
	UserCredentials(ctx context.Context, email string) (*protocol.User, string, error)
	ListUsers(ctx context.Context) ([]*protocol.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*protocol.User, error)
	UpdateUser(ctx context.Context, id string, u protocol.UserUpdate) (*protocol.User, error)

	InsertSession(ctx context.Context, digest, userID string, createdAt, expiresAt time.Time) error
	SessionUser(ctx context.Context, digest string, now time.Time) (string, error)
	DeleteSession(ctx context.Context, digest string) error
	PurgeSessions(ctx context.Context, now time.Time) (int64, error)
}

// Options configures a Service.
type Options struct {
	SessionTTL time.Duration
	// EmailDomain, when set, restricts registration to addresses in it.
	EmailDomain string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service implements registration, login and token authentication.
type Service struct {
	store  Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	// dummyHash is compared against on unknown emails so that a miss
	// costs the same as a wrong password.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

// New creates a Service. A nil logger uses slog.Default().
func New(s Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("helpdesk-login-placeholder"), opts.BcryptCost)
	return &Service{
		store:     s,
		opts:      opts,
		logger:    logger.With("component", "auth"),
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
		compare:   bcrypt.CompareHashAndPassword,
	}
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, req validate.RegisterRequest) (*protocol.Session, error) {
	reg, err := req.Parse(s.opts.EmailDomain)
	if err != nil {
		return nil, err
	}
	u, err := s.createUser(ctx, reg, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user", u.ID, "username", u.Username)
	return s.openSession(ctx, u)
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, req validate.LoginRequest) (*protocol.Session, error) {
	req, err := req.Parse()
	if err != nil {
		return nil, err
	}
	u, hash, err := s.store.UserCredentials(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.compare(s.dummyHash, []byte(req.Password))
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, apperr.Store("login", err)
	}
	if s.compare([]byte(hash), []byte(req.Password)) != nil {
		return nil, apperr.ErrUnauthorized
	}
	if !u.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", apperr.ErrForbidden)
	}
	return s.openSession(ctx, u)
}

// Authenticate resolves a session token to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*protocol.User, error) {
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}
	userID, err := s.store.SessionUser(ctx, digest(token), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, apperr.Store("authenticate", err)
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, apperr.Store("authenticate", err)
	}
	if !u.IsActive {
		return nil, apperr.ErrUnauthorized
	}
	return u, nil
}

// Logout ends a session.
func (s *Service) Logout(ctx context.Context, token string) error {
	return apperr.Store("logout", s.store.DeleteSession(ctx, digest(token)))
}

// PurgeExpired deletes expired sessions.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeSessions(ctx, s.now())
	if err != nil {
		return 0, apperr.Store("purge sessions", err)
	}
	return n, nil
}

// SearchUsers finds active users by username substring.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]*protocol.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Invalid("query", "query is required")
	}
	users, err := s.store.SearchUsers(ctx, query, SearchLimit)
	if err != nil {
		return nil, apperr.Store("search users", err)
	}
	return users, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]*protocol.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Store("list users", err)
	}
	return users, nil
}

// UpdateUser applies an admin edit.
func (s *Service) UpdateUser(ctx context.Context, id string, u protocol.UserUpdate) (*protocol.User, error) {
	if err := validate.UserUpdate(u); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateUser(ctx, id, u)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, apperr.Store("update user", err)
	}
	return updated, nil
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin creates the bootstrap administrator unless an account with
// its email already exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	_, _, err := s.store.UserCredentials(ctx, seed.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, apperr.Store("ensure admin", err)
	}

	reg, err := validate.RegisterRequest{
		Username: seed.Username,
		Email:    seed.Email,
		Password: seed.Password,
		JobTitle: protocol.JobSystemsEngineer,
	}.Parse("")
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	u, err := s.createUser(ctx, reg, true)
	if err != nil {
		return false, err
	}
	s.logger.Info("bootstrap admin created", "user", u.ID, "email", u.Email)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, reg validate.Registration, admin bool) (*protocol.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &protocol.User{
		ID:        uuid.NewString(),
		Username:  reg.Username,
		Email:     reg.Email,
		IsAdmin:   admin,
		IsActive:  true,
		JobTitle:  reg.JobTitle,
		CreatedAt: s.now(),
	}
	err = s.store.InsertUser(ctx, u, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("username or email already registered")
	}
	if err != nil {
		return nil, apperr.Store("create user", err)
	}
	return u, nil
}

func (s *Service) openSession(ctx context.Context, u *protocol.User) (*protocol.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	expires := now.Add(s.opts.SessionTTL)
	if err := s.store.InsertSession(ctx, digest(token), u.ID, now, expires); err != nil {
		return nil, apperr.Store("open session", err)
	}
	return &protocol.Session{User: *u, Token: token, ExpiresAt: expires}, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func digest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

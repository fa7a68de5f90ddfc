// Package client is a typed HTTP client for the helpdesk API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helpdesk-io/helpdesk/internal/apperr"
	"github.com/helpdesk-io/helpdesk/internal/logbuf"
	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// DefaultBaseURL is used when no base URL is given.
const DefaultBaseURL = "http://localhost:8080"

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  []apperr.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one helpdesk daemon.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) { c.token = token }

// Health checks that the daemon is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// --- Accounts ---

func (c *Client) Register(ctx context.Context, req validate.RegisterRequest) (*protocol.Session, error) {
	var s protocol.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*protocol.Session, error) {
	var s protocol.Session
	req := validate.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*protocol.User, error) {
	var u protocol.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]*protocol.User, error) {
	var users []*protocol.User
	path := "/api/users/search?" + url.Values{"query": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers requires an admin token.
func (c *Client) ListUsers(ctx context.Context) ([]*protocol.User, error) {
	var users []*protocol.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser requires an admin token.
func (c *Client) UpdateUser(ctx context.Context, id string, u protocol.UserUpdate) (*protocol.User, error) {
	var out protocol.User
	if err := c.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Projects ---

func (c *Client) CreateProject(ctx context.Context, name, description string) (*protocol.Project, error) {
	var p protocol.Project
	req := validate.CreateProjectRequest{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Projects lists the projects the caller is a member of.
func (c *Client) Projects(ctx context.Context) ([]*protocol.Project, error) {
	var ps []*protocol.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *Client) Project(ctx context.Context, id string) (*protocol.Project, error) {
	var p protocol.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) AddMember(ctx context.Context, projectID, userID string) (*protocol.Project, error) {
	var p protocol.Project
	path := "/api/projects/" + url.PathEscape(projectID) + "/members"
	if err := c.do(ctx, http.MethodPost, path, validate.AddMemberRequest{UserID: userID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) RemoveMember(ctx context.Context, projectID, userID string) (*protocol.Project, error) {
	var p protocol.Project
	path := "/api/projects/" + url.PathEscape(projectID) + "/members/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Tickets ---

// Tickets lists tickets matching f.
func (c *Client) Tickets(ctx context.Context, f protocol.TicketFilter) ([]*protocol.Ticket, error) {
	q := url.Values{}
	if f.ProjectID != "" {
		q.Set("project_id", f.ProjectID)
	}
	if f.AssignedTo != "" {
		q.Set("assigned_to", f.AssignedTo)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	path := "/api/tickets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var ts []*protocol.Ticket
	if err := c.do(ctx, http.MethodGet, path, nil, &ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// MyTickets lists tickets assigned to the caller.
func (c *Client) MyTickets(ctx context.Context) ([]*protocol.Ticket, error) {
	var ts []*protocol.Ticket
	if err := c.do(ctx, http.MethodGet, "/api/users/me/tickets", nil, &ts); err != nil {
		return nil, err
	}
	return ts, nil
}

func (c *Client) Ticket(ctx context.Context, id string) (*protocol.Ticket, error) {
	var t protocol.Ticket
	if err := c.do(ctx, http.MethodGet, "/api/tickets/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTicket(ctx context.Context, req validate.CreateTicketRequest) (*protocol.Ticket, error) {
	var t protocol.Ticket
	if err := c.do(ctx, http.MethodPost, "/api/tickets", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTicket sends a partial update. Only set fields are changed.
func (c *Client) UpdateTicket(ctx context.Context, id string, u protocol.TicketUpdate) (*protocol.Ticket, error) {
	var t protocol.Ticket
	if err := c.do(ctx, http.MethodPatch, "/api/tickets/"+url.PathEscape(id), updateBody(u), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Comments(ctx context.Context, ticketID string) ([]*protocol.Comment, error) {
	var cs []*protocol.Comment
	if err := c.do(ctx, http.MethodGet, "/api/tickets/"+url.PathEscape(ticketID)+"/comments", nil, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func (c *Client) AddComment(ctx context.Context, ticketID, content string) (*protocol.Comment, error) {
	var cm protocol.Comment
	path := "/api/tickets/" + url.PathEscape(ticketID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, validate.CommentRequest{Content: content}, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// Logs reads captured daemon logs. Requires an admin token.
func (c *Client) Logs(ctx context.Context, level, component string, limit int) ([]logbuf.Entry, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	if component != "" {
		q.Set("component", component)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []logbuf.Entry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// updateBody omits assigned_to unless it was set, since the server
// treats its presence (even as null) as a change.
func updateBody(u protocol.TicketUpdate) map[string]any {
	m := map[string]any{}
	if u.Title != nil {
		m["title"] = *u.Title
	}
	if u.Description != nil {
		m["description"] = *u.Description
	}
	if u.Status != nil {
		m["status"] = *u.Status
	}
	if u.Priority != nil {
		m["priority"] = *u.Priority
	}
	if u.Sizing != nil {
		m["sizing"] = *u.Sizing
	}
	if u.AssignedTo.Set {
		m["assigned_to"] = u.AssignedTo
	}
	return m
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error  string              `json:"error"`
			Fields []apperr.FieldError `json:"fields"`
		}
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			apiErr.Message, apiErr.Fields = eb.Error, eb.Fields
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

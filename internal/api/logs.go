package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/helpdesk-io/helpdesk/internal/logbuf"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// handleGetLogs serves captured log entries. since accepts RFC 3339 or
// Unix milliseconds.
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request, _ *protocol.User) {
	if s.svc.Logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	f := logbuf.Filter{Limit: 200, Component: q.Get("component")}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if lvl := q.Get("level"); lvl != "" {
		f.MinLevel = logbuf.ParseLevel(lvl)
	}
	if since := strings.TrimSpace(q.Get("since")); since != "" {
		if ts, err := time.Parse(time.RFC3339, since); err == nil {
			f.Since = ts
		} else if ms, err := strconv.ParseInt(since, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		}
	}

	writeJSON(w, http.StatusOK, s.svc.Logs.Query(f))
}

// Package logbuf keeps the most recent log records in memory so that
// administrators can read them over the API.
package logbuf

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries from a Buffer. Zero fields match everything.
type Filter struct {
	Since     time.Time
	MinLevel  slog.Leveler // nil matches every level
	Component string
	Limit     int // keeps the newest Limit matches
}

// Buffer is a fixed-size ring of entries, safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// New returns a Buffer holding at most size entries.
func New(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Write stores e, evicting the oldest entry when the buffer is full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next++
	if b.next == len(b.entries) {
		b.next = 0
		b.full = true
	}
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}

// Query returns the matching entries, oldest first. The result is never nil.
func (b *Buffer) Query(f Filter) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	ordered := b.entries[:b.next]
	if b.full {
		ordered = append(append([]Entry{}, b.entries[b.next:]...), b.entries[:b.next]...)
	}

	out := []Entry{}
	for _, e := range ordered {
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if f.MinLevel != nil && ParseLevel(e.Level) < f.MinLevel.Level() {
			continue
		}
		if f.Component != "" && e.Component != f.Component {
			continue
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// ParseLevel maps a level name (any case) to a slog.Level. Unknown names
// map to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo
	}
	return l
}

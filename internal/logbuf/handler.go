package logbuf

import (
	"context"
	"log/slog"
)

// Handler is an slog.Handler that records every entry at or above its
// capture level into a Buffer, then passes the record to an inner
// handler that applies its own level.
type Handler struct {
	inner   slog.Handler
	buf     *Buffer
	capture slog.Leveler
	attrs   []slog.Attr
	prefix  string
}

// NewHandler wraps inner. Records below capture are not buffered; a nil
// capture buffers everything.
func NewHandler(inner slog.Handler, buf *Buffer, capture slog.Leveler) *Handler {
	if capture == nil {
		capture = slog.LevelDebug
	}
	return &Handler{inner: inner, buf: buf, capture: capture}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.capture.Level() || h.inner.Enabled(ctx, l)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.capture.Level() {
		h.buf.Write(h.entry(r))
	}
	if !h.inner.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *Handler) entry(r slog.Record) Entry {
	e := Entry{Time: r.Time, Level: r.Level.String(), Message: r.Message}
	attrs := map[string]any{}
	add := func(key string, v slog.Value) {
		if key == "component" {
			e.Component = v.String()
			return
		}
		attrs[key] = plain(v)
	}
	// h.attrs keys already carry their group prefix.
	for _, a := range h.attrs {
		add(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.prefix+a.Key, a.Value)
		return true
	})
	if len(attrs) > 0 {
		e.Attrs = attrs
	}
	return e
}

// plain turns a slog value into something encoding/json renders
// usefully. Errors become their message.
func plain(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindGroup {
		m := map[string]any{}
		for _, a := range v.Group() {
			m[a.Key] = plain(a.Value)
		}
		return m
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.inner = h.inner.WithGroup(name)
	c.prefix = h.prefix + name + "."
	return &c
}

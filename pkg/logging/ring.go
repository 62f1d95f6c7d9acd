package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one retained log record, shaped for the admin API.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// RingHandler is a slog.Handler that keeps the most recent records in a
// fixed-capacity ring buffer. The admin API serves them on GET /logs.
type RingHandler struct {
	mu    sync.Mutex
	buf   []Entry
	next  int
	full  bool
	level slog.Level
}

// NewRingHandler creates a ring handler retaining up to capacity records
// at or above the given level.
func NewRingHandler(capacity int, level slog.Level) *RingHandler {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RingHandler{
		buf:   make([]Entry, capacity),
		level: level,
	}
}

// Enabled reports whether the handler records at the given level.
func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle appends the record to the ring, evicting the oldest when full.
func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	var parts []string
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value))
		return true
	})
	if len(parts) > 0 {
		msg = msg + " " + strings.Join(parts, " ")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = Entry{
		Timestamp: r.Time,
		Level:     strings.ToLower(r.Level.String()),
		Message:   msg,
	}
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.full = true
	}
	return nil
}

// WithAttrs returns a handler that includes attrs in every record while
// sharing the same underlying ring.
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &ringSink{parent: h, attrs: append([]slog.Attr{}, attrs...)}
}

// WithGroup is accepted but grouping is flattened; the ring stores
// rendered messages only.
func (h *RingHandler) WithGroup(string) slog.Handler {
	return h
}

// Entries returns the retained records, oldest first. A negative start or
// end selects from the beginning or through the latest record respectively;
// indexes count from the oldest retained record.
func (h *RingHandler) Entries(start, end int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ordered []Entry
	if h.full {
		ordered = append(ordered, h.buf[h.next:]...)
		ordered = append(ordered, h.buf[:h.next]...)
	} else {
		ordered = append(ordered, h.buf[:h.next]...)
	}

	if start < 0 {
		start = 0
	}
	if end < 0 || end >= len(ordered) {
		end = len(ordered) - 1
	}
	if start > end || len(ordered) == 0 {
		return []Entry{}
	}
	return ordered[start : end+1]
}

// Len returns the number of retained records.
func (h *RingHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// ringSink forwards records into a parent ring with bound attributes.
type ringSink struct {
	parent *RingHandler
	attrs  []slog.Attr
}

func (s *ringSink) Enabled(ctx context.Context, level slog.Level) bool {
	return s.parent.Enabled(ctx, level)
}

func (s *ringSink) Handle(ctx context.Context, r slog.Record) error {
	clone := r.Clone()
	// Bound attrs render before per-record attrs.
	rec := slog.NewRecord(clone.Time, clone.Level, clone.Message, clone.PC)
	rec.AddAttrs(s.attrs...)
	clone.Attrs(func(a slog.Attr) bool {
		rec.AddAttrs(a)
		return true
	})
	return s.parent.Handle(ctx, rec)
}

func (s *ringSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ringSink{parent: s.parent, attrs: append(append([]slog.Attr{}, s.attrs...), attrs...)}
}

func (s *ringSink) WithGroup(string) slog.Handler {
	return s
}

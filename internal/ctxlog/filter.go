package ctxlog

import (
	"context"
	"log/slog"

	"github.com/specvital/pester/internal/wildcard"
)

// SourceHandler drops debug records unless debug output is enabled and the
// record's source matches one of the patterns. Records at Info and above
// always pass through.
type SourceHandler struct {
	next     slog.Handler
	enabled  bool
	patterns []string
	source   string
}

// NewSourceHandler wraps next. Patterns use -like wildcards; "*" selects every source.
func NewSourceHandler(next slog.Handler, enabled bool, patterns []string) *SourceHandler {
	return &SourceHandler{next: next, enabled: enabled, patterns: patterns}
}

func (h *SourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < slog.LevelInfo && !h.enabled {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *SourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		return h.next.Handle(ctx, r)
	}
	if !h.enabled {
		return nil
	}

	source := h.source
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == SourceKey {
			source = a.Value.String()
			return false
		}
		return true
	})
	if !wildcard.MatchAny(h.patterns, source) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *SourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == SourceKey {
			clone.source = a.Value.String()
		}
	}
	clone.next = h.next.WithAttrs(attrs)
	return &clone
}

func (h *SourceHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}

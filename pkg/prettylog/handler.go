// Package prettylog is a compact colored slog handler for local
// development; production runs use the default text handler.
package prettylog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const timeFormat = "15:04:05.000"

const (
	reset    = "\033[0m"
	darkGray = 90
	cyan     = 36
	yellow   = 33
	red      = 31
)

func colorize(colorCode int, v string) string {
	return fmt.Sprintf("\033[%dm%s%s", colorCode, v, reset)
}

type handler struct {
	level slog.Level
	attrs []slog.Attr
	mu    *sync.Mutex
	out   *os.File
}

func NewHandler(level slog.Level) slog.Handler {
	return &handler{
		level: level,
		mu:    &sync.Mutex{},
		out:   os.Stderr,
	}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	return h
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch {
	case r.Level >= slog.LevelError:
		level = colorize(red, level)
	case r.Level >= slog.LevelWarn:
		level = colorize(yellow, level)
	case r.Level >= slog.LevelInfo:
		level = colorize(cyan, level)
	default:
		level = colorize(darkGray, level)
	}

	sb := strings.Builder{}
	sb.WriteString(colorize(darkGray, r.Time.Format(timeFormat)))
	sb.WriteString(" ")
	sb.WriteString(level)
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	appendAttr := func(a slog.Attr) bool {
		sb.WriteString(" ")
		sb.WriteString(colorize(darkGray, a.Key+"="))
		sb.WriteString(fmt.Sprintf("%v", a.Value.Any()))
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.WriteString(sb.String())
	return err
}

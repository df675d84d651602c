// Package log provides the command-line logger: one plain line per record,
// prefixed with a colored level label for anything but info.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Options configures New.
type Options struct {
	Verbose bool // show debug records
	NoColor bool // never color, even on a terminal
}

// New returns a logger writing to w. Labels are colored only when w is a
// terminal.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(newHandler(w, level, !opts.NoColor && IsTerminal(w)))
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Handler is a slog.Handler printing "Label: message key=value ...".
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	color  bool
	prefix string // group prefix for attribute keys
	attrs  string // preformatted attributes from WithAttrs
}

func newHandler(w io.Writer, level slog.Leveler, useColor bool) *Handler {
	return &Handler{mu: &sync.Mutex{}, w: w, level: level, color: useColor}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	if label := h.label(r.Level); label != "" {
		sb.WriteString(label)
		sb.WriteByte(' ')
	}
	sb.WriteString(r.Message)
	sb.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&sb, h.prefix, a)
	}
	c := *h
	c.attrs = sb.String()
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func (h *Handler) label(l slog.Level) string {
	var text string
	var c *color.Color
	switch {
	case l >= slog.LevelError:
		text, c = "Error:", color.New(color.FgRed, color.Bold)
	case l >= slog.LevelWarn:
		text, c = "Warning:", color.New(color.FgYellow)
	case l >= slog.LevelInfo:
		return ""
	default:
		text, c = "Debug:", color.New(color.FgCyan)
	}
	if h.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(sb, p, ga)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix + a.Key)
	sb.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	sb.WriteString(v)
}

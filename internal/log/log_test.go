package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func(l *slog.Logger)
		want    string
	}{
		{"info has no label", false, func(l *slog.Logger) { l.Info("wrote 3 files") }, "wrote 3 files\n"},
		{"warning", false, func(l *slog.Logger) { l.Warn("skipped", "name", "nope") }, "Warning: skipped name=nope\n"},
		{"error", false, func(l *slog.Logger) { l.Error("failed", "err", errors.New("bad input")) }, "Error: failed err=\"bad input\"\n"},
		{"debug hidden", false, func(l *slog.Logger) { l.Debug("plan") }, ""},
		{"debug verbose", true, func(l *slog.Logger) { l.Debug("plan", "rules", 5) }, "Debug: plan rules=5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(&buf, Options{Verbose: tt.verbose}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{}).With("target", "rust").WithGroup("group")
	l.Info("rendered", "name", "timer", slog.Group("files", "count", 4))
	assert.Equal(t, "rendered target=rust group.name=timer group.files.count=4\n", buf.String())
}

func TestColor(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, slog.LevelInfo, true))
	l.Warn("careful")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b["), "label should be colored: %q", out)
	assert.Contains(t, out, "Warning:")
	assert.True(t, strings.HasSuffix(out, " careful\n"))

	buf.Reset()
	slog.New(newHandler(&buf, slog.LevelInfo, false)).Warn("careful")
	assert.Equal(t, "Warning: careful\n", buf.String())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

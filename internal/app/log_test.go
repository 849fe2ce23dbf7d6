package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTvHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "store initialized",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tstore initialized\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "batch aborted",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tbatch aborted\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelWarn,
			message: "change notification failed",
			attrs:   []slog.Attr{slog.String("uri", "content://tv/channel/1"), slog.Int("attempt", 2)},
			want:    "2024-06-15T14:30:45Z\tWARN\top-789\tchange notification failed\turi=content://tv/channel/1\tattempt=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &tvHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestTvHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &tvHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "logo")}).(*tvHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "stored logo", 0)
	r.AddAttrs(slog.Int64("channel_id", 7))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=logo") {
		t.Errorf("expected pre-set attr component=logo, got: %q", got)
	}
	if !strings.Contains(got, "channel_id=7") {
		t.Errorf("expected record attr channel_id=7, got: %q", got)
	}
}

func TestTvHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &tvHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*tvHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestTvHandler_Enabled(t *testing.T) {
	all := &tvHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}

	warn := &tvHandler{level: slog.LevelWarn}
	if warn.Enabled(context.Background(), slog.LevelInfo) {
		t.Errorf("Enabled(INFO) = true for a warn handler")
	}
	if !warn.Enabled(context.Background(), slog.LevelError) {
		t.Errorf("Enabled(ERROR) = false for a warn handler")
	}
}

func TestFanout_RespectsLevels(t *testing.T) {
	var all, warn bytes.Buffer
	logger := slog.New(fanout{
		&tvHandler{w: &all, opID: "op"},
		&tvHandler{w: &warn, opID: "op", level: slog.LevelWarn},
	})

	logger.Info("quiet")
	logger.Warn("loud")

	if !strings.Contains(all.String(), "quiet") || !strings.Contains(all.String(), "loud") {
		t.Errorf("unfiltered handler output = %q", all.String())
	}
	if strings.Contains(warn.String(), "quiet") || !strings.Contains(warn.String(), "loud") {
		t.Errorf("warn handler output = %q", warn.String())
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-op", false)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Debug("written to file only", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, "tvp.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "test-op\twritten to file only\tk=v") {
		t.Errorf("log file = %q", data)
	}
}

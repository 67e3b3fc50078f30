package db

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/memory-pairs/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	saved := logger.Logger
	t.Cleanup(func() {
		logger.Logger = saved
		logger.SetLogLevel(logger.INFO)
	})
	var buf bytes.Buffer
	logger.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}

func TestQueryLoggerTrace(t *testing.T) {
	tests := []struct {
		name      string
		gormLevel string
		appLevel  logger.LogLevel
		slow      time.Duration
		err       error
		want      string
	}{
		{name: "slow query", gormLevel: "warn", appLevel: logger.WARN, slow: time.Nanosecond, want: "gorm slow query"},
		{name: "debug query", gormLevel: "info", appLevel: logger.DEBUG, slow: time.Hour, want: "gorm query"},
		{name: "query hidden above debug", gormLevel: "info", appLevel: logger.INFO, slow: time.Hour},
		{name: "query hidden at warn", gormLevel: "warn", appLevel: logger.DEBUG, slow: time.Hour},
		{name: "query error", gormLevel: "error", appLevel: logger.ERROR, slow: time.Hour, err: errors.New("boom"), want: "gorm query error"},
		{name: "record not found", gormLevel: "info", appLevel: logger.DEBUG, slow: time.Hour, err: gorm.ErrRecordNotFound},
		{name: "silent", gormLevel: "silent", appLevel: logger.DEBUG, slow: time.Nanosecond, err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			logger.SetLogLevel(tt.appLevel)

			lg, err := newGormLogger(tt.gormLevel)
			if err != nil {
				t.Fatalf("newGormLogger(%q): %v", tt.gormLevel, err)
			}
			ql := lg.(*queryLogger)
			ql.slowThreshold = tt.slow
			ql.Trace(context.Background(), time.Now().Add(-time.Millisecond), func() (string, int64) {
				return "SELECT * FROM game_records", 3
			}, tt.err)

			out := buf.String()
			if tt.want == "" {
				if out != "" {
					t.Fatalf("expected no output, got: %s", out)
				}
				return
			}
			if !strings.Contains(out, tt.want) || !strings.Contains(out, "component=gorm") {
				t.Fatalf("expected %q tagged with component=gorm, got: %s", tt.want, out)
			}
		})
	}
}

func TestNewGormLoggerLevels(t *testing.T) {
	for _, value := range []string{"", "  ", "WARN"} {
		lg, err := newGormLogger(value)
		if err != nil {
			t.Fatalf("newGormLogger(%q): %v", value, err)
		}
		if level := lg.(*queryLogger).level; level != gormlogger.Warn {
			t.Fatalf("newGormLogger(%q) level = %v, want warn", value, level)
		}
	}

	lg, err := newGormLogger("verbose")
	if err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
	if level := lg.(*queryLogger).level; level != defaultGormLogLevel {
		t.Fatalf("unknown level should fall back to warn, got %v", level)
	}

	silenced := lg.LogMode(gormlogger.Silent).(*queryLogger)
	if silenced.level != gormlogger.Silent || lg.(*queryLogger).level != gormlogger.Warn {
		t.Fatalf("LogMode should return an adjusted copy")
	}
}

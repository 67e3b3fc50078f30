package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smith3v/memory-pairs/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond
	defaultGormLogLevel  = gormlogger.Warn
)

// queryLogger forwards gorm output to the shared slog logger, tagged with
// component=gorm.
type queryLogger struct {
	slowThreshold time.Duration
	level         gormlogger.LogLevel
}

func newGormLogger(levelValue string) (gormlogger.Interface, error) {
	level := defaultGormLogLevel
	var levelErr error
	if strings.TrimSpace(levelValue) != "" {
		level, levelErr = parseGormLogLevel(levelValue)
	}
	return &queryLogger{slowThreshold: defaultSlowThreshold, level: level}, levelErr
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Info, slog.LevelInfo, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Warn, slog.LevelWarn, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Error, slog.LevelError, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return
	case err != nil:
		sql, rows := fc()
		l.emit(ctx, gormlogger.Error, slog.LevelError, "gorm query error",
			slog.Duration("elapsed", elapsed), slog.Int64("rows", rows), slog.String("sql", sql), slog.Any("error", err))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		sql, rows := fc()
		l.emit(ctx, gormlogger.Warn, slog.LevelWarn, "gorm slow query",
			slog.Duration("elapsed", elapsed), slog.Int64("rows", rows), slog.String("sql", sql), slog.Duration("threshold", l.slowThreshold))
	default:
		if !l.enabled(gormlogger.Info) {
			return
		}
		sql, rows := fc()
		l.emit(ctx, gormlogger.Info, slog.LevelDebug, "gorm query",
			slog.Duration("elapsed", elapsed), slog.Int64("rows", rows), slog.String("sql", sql))
	}
}

func (l *queryLogger) emit(ctx context.Context, gormLevel gormlogger.LogLevel, level slog.Level, msg string, attrs ...slog.Attr) {
	if !l.enabled(gormLevel) {
		return
	}
	attrs = append([]slog.Attr{slog.String("component", "gorm")}, attrs...)
	logger.Logger.LogAttrs(ctx, level, msg, attrs...)
}

func (l *queryLogger) enabled(level gormlogger.LogLevel) bool {
	if l.level == gormlogger.Silent || l.level < level {
		return false
	}
	switch level {
	case gormlogger.Info:
		return logger.Enabled(logger.DEBUG)
	case gormlogger.Warn:
		return logger.Enabled(logger.WARN)
	case gormlogger.Error:
		return logger.Enabled(logger.ERROR)
	default:
		return false
	}
}

func parseGormLogLevel(value string) (gormlogger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	default:
		return defaultGormLogLevel, fmt.Errorf("invalid gorm log level %q", value)
	}
}

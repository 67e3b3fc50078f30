package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	Logger       *slog.Logger
	currentLevel LogLevel = INFO
)

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// Options selects the minimum level, an optional log file mirrored next to
// stdout, and the handler format ("text" or "json").
type Options struct {
	Level  string
	File   string
	Format string
}

func Configure(opts Options) error {
	level := currentLevel
	var levelErr error
	if strings.TrimSpace(opts.Level) != "" {
		level, levelErr = ParseLogLevel(opts.Level)
	}

	writer := io.Writer(os.Stdout)
	var fileErr error
	if strings.TrimSpace(opts.File) != "" {
		dir := filepath.Dir(opts.File)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			fileErr = mkErr
		} else {
			file, openErr := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if openErr != nil {
				fileErr = openErr
			} else {
				writer = io.MultiWriter(os.Stdout, file)
			}
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: slogLevel(level)}
	var handler slog.Handler
	var formatErr error
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		formatErr = fmt.Errorf("invalid log format %q", opts.Format)
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	currentLevel = level
	Logger = slog.New(handler)

	return errors.Join(levelErr, fileErr, formatErr)
}

func SetLogLevel(level LogLevel) {
	currentLevel = level
}

// Enabled reports whether messages at level pass the current filter.
func Enabled(level LogLevel) bool {
	return currentLevel <= level
}

func ParseLogLevel(value string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level %q", value)
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	if Enabled(DEBUG) {
		Logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if Enabled(INFO) {
		Logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Enabled(WARN) {
		Logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Enabled(ERROR) {
		Logger.Error(msg, args...)
	}
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a *slog.Logger writing JSON to stderr and optionally to a
// rotated logFile. When console is true the terminal belongs to the TUI and
// stderr is left alone. The logger becomes the slog default.
//
// The returned LevelVar changes the level at runtime. The cleanup func closes
// the log file; callers must defer it.
func New(level, logFile string, console bool) (*slog.Logger, *slog.LevelVar, func(), error) {
	lvl := new(slog.LevelVar)
	lvl.Set(parseLevel(level))

	var writers []io.Writer
	if !console {
		writers = append(writers, os.Stderr)
	}
	cleanup := func() {}

	if logFile != "" {
		f := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, lvl, cleanup, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package logger provides debug-oriented logging for floatoverlay.
// When FLOATOVERLAY_DEBUG=1, logs at Debug level are written to stderr and to floatoverlay-debug.log (in current directory).
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	debug    bool
	log      *slog.Logger
	file     *os.File
	initOnce sync.Once
)

func initLogger() {
	initOnce.Do(func() {
		debug = os.Getenv("FLOATOVERLAY_DEBUG") == "1"
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level:     level,
			AddSource: debug,
		}

		// debug: stderr and floatoverlay-debug.log get the same text stream
		var w io.Writer = os.Stderr
		if debug {
			dir, _ := os.Getwd()
			if dir == "" {
				dir = os.TempDir()
			}
			logPath := filepath.Join(dir, "floatoverlay-debug.log")
			f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err == nil {
				file = f
				w = io.MultiWriter(os.Stderr, f)
			}
		}
		log = slog.New(slog.NewTextHandler(w, opts))
	})
}

// Logger returns the underlying slog logger, for libraries that take one.
func Logger() *slog.Logger {
	initLogger()
	return log
}

// Debug logs at Debug level. Keys must be string; values can be any type.
func Debug(msg string, keyvals ...any) {
	initLogger()
	log.Debug(msg, keyvals...)
}

// Info logs at Info level.
func Info(msg string, keyvals ...any) {
	initLogger()
	log.Info(msg, keyvals...)
}

// Warn logs at Warn level.
func Warn(msg string, keyvals ...any) {
	initLogger()
	log.Warn(msg, keyvals...)
}

// Error logs at Error level.
func Error(msg string, keyvals ...any) {
	initLogger()
	log.Error(msg, keyvals...)
}

// Close closes the debug log file if one was opened. Call from main on exit if desired.
func Close() {
	if file != nil {
		_ = file.Close()
		file = nil
	}
}

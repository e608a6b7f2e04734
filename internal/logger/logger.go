// Package logger provides the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// Standard field keys.
const (
	KeyHost    = "host"
	KeyShare   = "share"
	KeyUser    = "user"
	KeyOp      = "op"
	KeyPath    = "path"
	KeyCommand = "cmd"
	KeyItem    = "item"
	KeyBackend = "backend"
	KeyError   = "error"
	KeyBytes   = "bytes"
)

var (
	mu      sync.RWMutex
	level             = new(slog.LevelVar)
	format            = "text"
	output  io.Writer = os.Stderr
	logFile *os.File
	slogger *slog.Logger
)

func init() {
	level.Set(slog.LevelInfo)
	reconfigure()
}

func reconfigure() {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slogger = slog.New(slog.NewJSONHandler(output, opts))
	} else {
		slogger = slog.New(slog.NewTextHandler(output, opts))
	}
}

// Init applies cfg. Output defaults to stderr so stdout stays reserved
// for command results.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	var file *os.File
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		output = f
		file = f
	}
	closeLogFile()
	logFile = file

	setLevel(cfg.Level)
	if f := strings.ToLower(cfg.Format); f == "json" || f == "text" {
		format = f
	}
	reconfigure()
	return nil
}

// InitWithWriter routes output to w. Used by tests.
func InitWithWriter(w io.Writer, lvl, fmtName string) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	closeLogFile()
	setLevel(lvl)
	if f := strings.ToLower(fmtName); f == "json" || f == "text" {
		format = f
	}
	reconfigure()
}

// Close releases the log file opened by Init, if any, and routes output
// back to stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = os.Stderr
	reconfigure()
	return err
}

// closeLogFile closes the previous log file. Callers hold mu.
func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// SetLevel sets the minimum level; unknown names are ignored.
func SetLevel(lvl string) {
	mu.Lock()
	defer mu.Unlock()
	setLevel(lvl)
}

func setLevel(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	}
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level. Usage: Debug("message", "key", value)
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

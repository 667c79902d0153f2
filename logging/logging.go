/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package logging provides the console logger used by monodist.
// All logging should be done through context-based functions (InfoContext, ActionContext, etc.)
// so the logger configured by the CLI reaches every pipeline stage.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// OutputType represents the output format for logs
type OutputType int

// Output types for different log formats
const (
	PlainOutput OutputType = iota
	ColorOutput
	JSONOutput
)

// ParseOutputType maps a format name to an OutputType. Unknown names map to
// PlainOutput.
func ParseOutputType(format string) OutputType {
	switch format {
	case "json":
		return JSONOutput
	case "color":
		return ColorOutput
	default:
		return PlainOutput
	}
}

// CustomLogger writes leveled messages and status steps to the console.
type CustomLogger struct {
	mu         sync.Mutex
	Level      slog.Level
	OutputType OutputType
	Quiet      bool
	Verbose    bool
	// Console receives log lines and steps. Defaults to stderr.
	Console io.Writer
	// Out receives command results. Defaults to stdout.
	Out io.Writer
	now func() time.Time
}

// NewCustomLogger creates a logger at the given level writing plain text.
func NewCustomLogger(level slog.Level) *CustomLogger {
	return &CustomLogger{
		Level:      level,
		OutputType: PlainOutput,
		Console:    os.Stderr,
		Out:        os.Stdout,
		now:        time.Now,
	}
}

// NewCustomLoggerWithOptions creates a logger from CLI settings.
func NewCustomLoggerWithOptions(levelStr, format string, quiet, verbose bool) *CustomLogger {
	l := NewCustomLogger(DetermineLogLevel(levelStr))
	l.OutputType = ParseOutputType(format)
	l.Quiet = quiet
	l.Verbose = verbose

	if verbose && l.Level > slog.LevelDebug {
		l.Level = slog.LevelDebug
	}

	return l
}

// DetermineLogLevel converts a string to slog.Level
func DetermineLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsVerbose reports whether child process output should be streamed.
func (l *CustomLogger) IsVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Verbose
}

// IsQuiet returns whether the logger is in quiet mode.
func (l *CustomLogger) IsQuiet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Quiet
}

// enabledLocked must be called while holding l.mu.
// Quiet shows errors only; otherwise the configured level applies.
func (l *CustomLogger) enabledLocked(level slog.Level) bool {
	if l.Quiet {
		return level >= slog.LevelError
	}
	return level >= l.Level
}

func levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.HiRedString("[ERROR]")
	case level >= slog.LevelWarn:
		return color.HiYellowString("[WARN]")
	case level >= slog.LevelInfo:
		return color.HiGreenString("[INFO]")
	default:
		return color.HiBlackString("[DEBUG]")
	}
}

func (l *CustomLogger) log(level slog.Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabledLocked(level) || l.Console == nil {
		return
	}

	ts := l.clock().Format(time.RFC3339)

	switch l.OutputType {
	case JSONOutput:
		l.writeJSONLocked(map[string]string{"time": ts, "level": level.String(), "msg": msg})
	case ColorOutput:
		fmt.Fprintf(l.Console, "%s %s\n", levelPrefix(level), msg)
	default:
		fmt.Fprintf(l.Console, "[%s] %s %s\n", ts, level.String(), msg)
	}
}

func (l *CustomLogger) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}

func (l *CustomLogger) writeJSONLocked(v interface{}) {
	if err := json.NewEncoder(l.Console).Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode log entry: %v\n", err)
	}
}

// Info logs an informational message.
func (l *CustomLogger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *CustomLogger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

// Debug logs a debug message.
func (l *CustomLogger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

// Error logs an error message.
func (l *CustomLogger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// Output writes a command result to Out, encoded as JSON in JSON mode.
func (l *CustomLogger) Output(data interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Out == nil {
		return
	}

	if l.OutputType == JSONOutput {
		enc := json.NewEncoder(l.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		}
		return
	}

	fmt.Fprintln(l.Out, data)
}

// Context-based logging support

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// WithLogger returns a new context with the provided logger.
func WithLogger(ctx context.Context, l *CustomLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from the context.
// If no logger is found in context, returns a new default logger instance.
func FromContext(ctx context.Context) *CustomLogger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*CustomLogger); ok && l != nil {
			return l
		}
	}
	return NewCustomLogger(slog.LevelInfo)
}

// InfoContext logs an informational message using the logger from context.
func InfoContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Info(format, args...)
}

// WarnContext logs a warning message using the logger from context.
func WarnContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warn(format, args...)
}

// DebugContext logs a debug message using the logger from context.
func DebugContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debug(format, args...)
}

// ErrorContext logs an error message using the logger from context.
func ErrorContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Error(format, args...)
}

// OutputContext writes a command result using the logger from context.
func OutputContext(ctx context.Context, data interface{}) {
	FromContext(ctx).Output(data)
}

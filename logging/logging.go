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

// Package logging provides the leveled logger used across devbox-images.
// Loggers travel in a context.Context; code logs through InfoContext,
// WarnContext and friends so per-image loggers created with WithImage reach
// every step of a build.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
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

// ParseOutputType maps a log.format value to an OutputType. Unknown values
// select PlainOutput.
func ParseOutputType(format string) OutputType {
	switch strings.ToLower(format) {
	case "json":
		return JSONOutput
	case "color":
		return ColorOutput
	default:
		return PlainOutput
	}
}

// levelColors are the prefixes used by ColorOutput.
var levelColors = map[slog.Level]func(format string, a ...interface{}) string{
	slog.LevelDebug: color.HiBlackString,
	slog.LevelInfo:  color.HiGreenString,
	slog.LevelWarn:  color.HiYellowString,
	slog.LevelError: color.HiRedString,
}

// fallbackMu guards loggers that were built as struct literals.
var fallbackMu sync.Mutex

// CustomLogger writes leveled, redacted log lines to ConsoleWriter.
// Loggers derived with WithImage share the parent's lock so lines written
// by concurrent image builds never interleave.
type CustomLogger struct {
	mu            *sync.Mutex
	LogLevel      slog.Level
	OutputType    OutputType
	Quiet         bool
	Verbose       bool
	ConsoleWriter io.Writer
	image         string
}

func (l *CustomLogger) lock() *sync.Mutex {
	if l.mu == nil {
		return &fallbackMu
	}
	return l.mu
}

// NewCustomLogger creates a plain logger at level writing to stderr.
func NewCustomLogger(level slog.Level) *CustomLogger {
	return &CustomLogger{
		mu:            &sync.Mutex{},
		LogLevel:      level,
		OutputType:    PlainOutput,
		ConsoleWriter: os.Stderr,
	}
}

// NewCustomLoggerWithOptions creates a logger from the log.level and
// log.format settings and the --quiet and --verbose flags. Verbose lowers
// the level to debug; quiet shows errors only and wins over verbose.
func NewCustomLoggerWithOptions(logLevelStr, outputFormat string, quiet, verbose bool) *CustomLogger {
	l := NewCustomLogger(DetermineLogLevel(logLevelStr))
	l.OutputType = ParseOutputType(outputFormat)
	l.Quiet = quiet
	l.Verbose = verbose
	if verbose && l.LogLevel > slog.LevelDebug {
		l.LogLevel = slog.LevelDebug
	}
	return l
}

// WithImage returns a child logger whose messages are attributed to the
// named image.
func (l *CustomLogger) WithImage(name string) *CustomLogger {
	mu := l.lock()
	mu.Lock()
	defer mu.Unlock()

	child := *l
	child.mu = mu
	child.image = name
	return &child
}

// Enabled reports whether a message at level would be written.
func (l *CustomLogger) Enabled(level slog.Level) bool {
	mu := l.lock()
	mu.Lock()
	defer mu.Unlock()
	return l.enabledLocked(level)
}

func (l *CustomLogger) enabledLocked(level slog.Level) bool {
	if l.Quiet {
		return level >= slog.LevelError
	}
	return level >= l.LogLevel
}

type jsonLine struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Image string `json:"image,omitempty"`
	Msg   string `json:"msg"`
}

// render formats one line. Messages pass through RedactSensitivePatterns
// so tokens in command output or errors never reach the log.
func (l *CustomLogger) render(now time.Time, level slog.Level, msg string) (string, error) {
	msg = RedactSensitivePatterns(msg)

	if l.OutputType == JSONOutput {
		data, err := json.Marshal(jsonLine{
			Time:  now.UTC().Format(time.RFC3339),
			Level: level.String(),
			Image: l.image,
			Msg:   msg,
		})
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	}

	if l.image != "" {
		msg = "[" + l.image + "] " + msg
	}
	if l.OutputType == ColorOutput {
		if paint, ok := levelColors[level]; ok {
			msg = paint("[%s] %s", level.String(), msg)
		}
	}
	return fmt.Sprintf("[%s] %s\n", now.Format("2006-01-02 15:04:05"), msg), nil
}

func (l *CustomLogger) log(level slog.Level, format string, args ...interface{}) {
	now := time.Now()

	mu := l.lock()
	mu.Lock()
	defer mu.Unlock()

	if l.ConsoleWriter == nil || !l.enabledLocked(level) {
		return
	}

	line, err := l.render(now, level, fmt.Sprintf(format, args...))
	if err != nil {
		return
	}
	if _, err := io.WriteString(l.ConsoleWriter, line); err != nil {
		fmt.Fprint(os.Stderr, line)
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

// Error logs an error message. firstArg may be an error, a format string
// or any other value.
func (l *CustomLogger) Error(firstArg interface{}, args ...interface{}) {
	switch v := firstArg.(type) {
	case error:
		if len(args) == 0 {
			l.log(slog.LevelError, "%s", v.Error())
			return
		}
		l.log(slog.LevelError, v.Error(), args...)
	case string:
		l.log(slog.LevelError, v, args...)
	default:
		l.log(slog.LevelError, "%v", v)
	}
}

// DetermineLogLevel converts a log.level value to an slog.Level. Unknown
// values select info.
func DetermineLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// WithLogger returns a new context with the provided logger.
func WithLogger(ctx context.Context, l *CustomLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithImage returns a context whose logger attributes messages to the named image.
func WithImage(ctx context.Context, name string) context.Context {
	return WithLogger(ctx, FromContext(ctx).WithImage(name))
}

// FromContext retrieves the logger from the context, or a default info
// logger when there is none.
func FromContext(ctx context.Context) *CustomLogger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*CustomLogger); ok && l != nil {
			return l
		}
	}
	return NewCustomLogger(slog.LevelInfo)
}

// InfoContext logs an informational message using the logger from context.
func InfoContext(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).Info(message, args...)
}

// WarnContext logs a warning message using the logger from context.
func WarnContext(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).Warn(message, args...)
}

// DebugContext logs a debug message using the logger from context.
func DebugContext(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).Debug(message, args...)
}

// ErrorContext logs an error message using the logger from context.
func ErrorContext(ctx context.Context, firstArg interface{}, args ...interface{}) {
	FromContext(ctx).Error(firstArg, args...)
}

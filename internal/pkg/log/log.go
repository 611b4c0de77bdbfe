package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUserID    contextKey = "user_id"
)

type level struct {
	name  string
	badge *color.Color
}

var (
	levelInfo  = level{name: "INFO", badge: color.New(color.FgWhite, color.BgGreen)}
	levelWarn  = level{name: "WARN", badge: color.New(color.FgWhite, color.BgYellow)}
	levelError = level{name: "ERROR", badge: color.New(color.FgRed)}
)

var (
	mu     sync.Mutex
	output io.Writer = color.Output
)

// SetOutput redirects all log lines to w and returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

// WithRequestID adds request ID to context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestID returns the request ID stored in ctx, or ""
func RequestID(ctx context.Context) string {
	return valueOf(ctx, contextKeyRequestID)
}

// WithUserID tags ctx with the authenticated user so session logs can be traced
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// UserID returns the user ID stored in ctx, or ""
func UserID(ctx context.Context) string {
	return valueOf(ctx, contextKeyUserID)
}

func valueOf(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// formatLog formats a log line with the optional request and user IDs
func formatLog(levelName, requestID, userID, format string, a ...interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", levelName)
	if requestID != "" {
		fmt.Fprintf(&b, " [req_id=%s]", requestID)
	}
	if userID != "" {
		fmt.Fprintf(&b, " [user=%s]", userID)
	}
	b.WriteByte(' ')
	fmt.Fprintf(&b, format, a...)
	return b.String()
}

func emit(ctx context.Context, l level, format string, a ...interface{}) {
	line := formatLog(l.name, RequestID(ctx), UserID(ctx), format, a...)
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, "%s %s\n", l.badge.Sprint("["+l.name+"]"), line)
}

// Info log information
func Info(format string, a ...interface{}) {
	emit(context.Background(), levelInfo, format, a...)
}

// InfoWithContext logs information with the request and user IDs carried by ctx
func InfoWithContext(ctx context.Context, format string, a ...interface{}) {
	emit(ctx, levelInfo, format, a...)
}

// Warn log warning
func Warn(format string, a ...interface{}) {
	emit(context.Background(), levelWarn, format, a...)
}

// WarnWithContext logs a warning with the request and user IDs carried by ctx
func WarnWithContext(ctx context.Context, format string, a ...interface{}) {
	emit(ctx, levelWarn, format, a...)
}

// Error log error
func Error(format string, a ...interface{}) {
	emit(context.Background(), levelError, format, a...)
}

// ErrorWithContext logs an error with the request and user IDs carried by ctx
func ErrorWithContext(ctx context.Context, format string, a ...interface{}) {
	emit(ctx, levelError, format, a...)
}

// Debug dumps values when debug logging is enabled
func Debug(enabled bool, a ...interface{}) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(output, spew.Sdump(a...))
}

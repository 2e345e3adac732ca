// Package logging provides structured logging infrastructure for the deckhand
// application. It wraps Go's standard log/slog package with context-aware
// logging and domain-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// WorkspaceKey is the context key for workspace names.
	WorkspaceKey contextKey = "workspace"
	// SlotKey is the context key for host slot positions.
	SlotKey contextKey = "slot"
	// BranchKey is the context key for git branch names.
	BranchKey contextKey = "branch"
	// OperationKey is the context key for the user-triggered operation.
	OperationKey contextKey = "operation"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for deckhand.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+8)

	if v := ctx.Value(WorkspaceKey); v != nil {
		enriched = append(enriched, "workspace", v)
	}
	if v := ctx.Value(SlotKey); v != nil {
		enriched = append(enriched, "slot", v)
	}
	if v := ctx.Value(BranchKey); v != nil {
		enriched = append(enriched, "branch", v)
	}
	if v := ctx.Value(OperationKey); v != nil {
		enriched = append(enriched, "operation", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithWorkspace adds a workspace name to the context.
func WithWorkspace(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, WorkspaceKey, name)
}

// WithSlot adds a slot position to the context.
func WithSlot(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, SlotKey, index)
}

// WithBranch adds a git branch name to the context.
func WithBranch(ctx context.Context, branch string) context.Context {
	return context.WithValue(ctx, BranchKey, branch)
}

// WithOperation adds the triggering operation name to the context.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

// --- Domain-specific logging helpers ---

// LogLaunch logs a successful workspace launch.
func LogLaunch(ctx context.Context, logger *Logger, name string, slot int, worktree bool) {
	logger.InfoContext(ctx, "workspace launched",
		"workspace", name,
		"slot", slot,
		"worktree", worktree,
	)
}

// LogKill logs a workspace kill.
func LogKill(ctx context.Context, logger *Logger, name string, removeWorktree bool) {
	logger.InfoContext(ctx, "workspace killed",
		"workspace", name,
		"remove_worktree", removeWorktree,
	)
}

// LogPollTick logs a completed poll tick.
func LogPollTick(ctx context.Context, logger *Logger, workspaces, orphans int, duration time.Duration) {
	logger.DebugContext(ctx, "poll tick completed",
		"workspaces", workspaces,
		"orphans", orphans,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogWorktreeRemovalFailed logs a best-effort worktree removal that failed.
// Removal failures never block the kill operation.
func LogWorktreeRemovalFailed(ctx context.Context, logger *Logger, path string, err error) {
	logger.WarnContext(ctx, "worktree removal failed",
		"worktree_path", path,
		"error", err.Error(),
	)
}

// LogStatusChange logs a workspace status transition.
func LogStatusChange(ctx context.Context, logger *Logger, name, from, to string) {
	logger.DebugContext(ctx, "workspace status changed",
		"workspace", name,
		"from", from,
		"to", to,
	)
}

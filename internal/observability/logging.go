package observability

import (
	"context"
	"log/slog"
)

// RepoLogger records destructive repository operations so cascades can be audited.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, "repository delete", "delete", attrs)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	l.log(ctx, slog.LevelError, "repository error", operation, []slog.Attr{slog.String("error", err.Error())})
}

func (l *RepoLogger) log(ctx context.Context, level slog.Level, msg, operation string, attrs []slog.Attr) {
	all := append([]slog.Attr{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}, attrs...)
	slog.LogAttrs(ctx, level, msg, all...)
}

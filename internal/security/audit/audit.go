package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id that audit records are tagged with.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Entry is one audited state change.
type Entry struct {
	UserID     int64
	Action     string // create, vote
	Resource   string // employee, restaurant, menu
	ResourceID string
	Status     string // succeeded, rejected, failed
	HTTPStatus int
	Details    string
}

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("channel", "audit")), now: time.Now}
}

func (al *Logger) Log(ctx context.Context, e Entry) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.Int64("user_id", e.UserID),
		slog.String("status", e.Status),
		slog.Int("http_status", e.HTTPStatus),
		slog.String("details", e.Details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, resource, reason string) {
	al.Log(ctx, Entry{UserID: userID, Action: "access_denied", Resource: resource, Status: "denied", Details: reason})
}

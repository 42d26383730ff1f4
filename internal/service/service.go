package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/observability/tracing"
)

// Calendar decides what "today" is for menus and results.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

// Today returns the current date in the calendar's location.
func (c Calendar) Today() domain.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return domain.DateOf(now().In(loc))
}

// IsClientError reports whether err is caused by the request rather than the server.
func IsClientError(err error) bool {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		nerr *domain.NotFoundError
		merr *domain.MalformedInputError
	)
	return errors.As(err, &verr) || errors.As(err, &cerr) || errors.As(err, &nerr) || errors.As(err, &merr) ||
		errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrTokenInvalid)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan closes span, marking it failed only for server side errors.
func endSpan(span trace.Span, err error) {
	if err != nil && !IsClientError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package logging

import (
	"context"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	maxRequestIDLen = 128
	maxMemberLen    = 256
)

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type requestCtxKey struct{}
type memberCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if m := MemberFromContext(ctx); m != "" {
		fields = append(fields, zap.String("member", m))
	}

	return fields
}

// WithRequestID attaches a request ID. IDs that are empty, too long or
// contain characters outside [A-Za-z0-9_-] are dropped, since they arrive
// from client headers.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" || len(id) > maxRequestIDLen || !requestIDPattern.MatchString(id) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithMember attaches the member a question was resolved to.
func WithMember(ctx context.Context, name string) context.Context {
	if name == "" || len(name) > maxMemberLen || !utf8.ValidString(name) {
		return ctx
	}
	return context.WithValue(ctx, memberCtxKey{}, name)
}

// MemberFromContext returns the detected member or "".
func MemberFromContext(ctx context.Context) string {
	m, _ := ctx.Value(memberCtxKey{}).(string)
	return m
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}

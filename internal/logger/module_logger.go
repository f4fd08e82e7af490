package logger

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"
)

type traceIDContextKey struct{}

// WithTraceID returns a context whose loggers tag every record with traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey{}, traceID)
}

// TraceIDFrom returns the trace id stored by WithTraceID, or "".
func TraceIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDContextKey{}).(string)
	return id
}

// moduleLogger implements Logger on top of one slog handler
type moduleLogger struct {
	module   string
	logger   *slog.Logger
	level    slog.Level
	timezone *time.Location
	fields   []Field
}

func (m *moduleLogger) derive(module string, fields []Field) *moduleLogger {
	return &moduleLogger{
		module:   module,
		logger:   m.logger,
		level:    m.level,
		timezone: m.timezone,
		fields:   fields,
	}
}

// Module creates a sub-module logger named "parent.child".
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	if m.module != "" {
		name = m.module + "." + name
	}
	return m.derive(name, slices.Clone(m.fields))
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.emit(traceLevelValue, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.emit(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field) { m.emit(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field) { m.emit(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.emit(slog.LevelError, msg, fields) }

// Log logs a message with explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.emit(parseLogLevel(string(level)), msg, fields)
}

// With returns a new logger with accumulated fields
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return m.derive(m.module, slices.Concat(m.fields, fields))
}

// WithContext returns a logger carrying the context's trace id
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	id := TraceIDFrom(ctx)
	if id == "" {
		return m
	}
	return m.With(String(traceIDKey, id))
}

// Flush is a no-op; writers belong to the CentralLogger.
func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) emit(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		attrs = append(attrs, m.attr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, m.attr(f))
	}
	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// attr converts a Field; floats keep three decimals and times use the
// logger's timezone.
func (m *moduleLogger) attr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float32:
		return slog.Float64(f.Key, round3(float64(v)))
	case float64:
		return slog.Float64(f.Key, round3(v))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		if m.timezone != nil {
			v = v.In(m.timezone)
		}
		return slog.Time(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

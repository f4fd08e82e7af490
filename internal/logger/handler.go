package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Attribute keys added by the module logger
const (
	moduleKey  = "module"
	traceIDKey = "trace_id"
)

// newTextHandler builds the console handler: plain text, no timestamp, TRACE level name.
func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return replaceCommon(a, tz)
		},
	})
}

// newJSONHandler builds the file handler: JSON with RFC3339 timestamps in tz.
func newJSONHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				t := a.Value.Time()
				if tz != nil {
					t = t.In(tz)
				}
				return slog.String(slog.TimeKey, t.Format(time.RFC3339))
			}
			return replaceCommon(a, tz)
		},
	})
}

func replaceCommon(a slog.Attr, tz *time.Location) slog.Attr {
	switch {
	case a.Key == slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= traceLevelValue {
			return slog.String(slog.LevelKey, "TRACE")
		}
	case a.Value.Kind() == slog.KindTime && tz != nil:
		return slog.Time(a.Key, a.Value.Time().In(tz))
	}
	return a
}

// NewSlogLogger returns a standalone text Logger writing to w.
// A nil writer logs to stderr and a nil timezone means local time.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = os.Stderr
	}
	if tz == nil {
		tz = time.Local
	}
	slogLevel := parseLogLevel(string(level))
	return &moduleLogger{
		logger:   slog.New(newTextHandler(w, slogLevel, tz)),
		level:    slogLevel,
		timezone: tz,
	}
}

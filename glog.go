package integration

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-logger/glog"
)

type glogLogger struct {
	logger glog.Logger
}

// NewGlogLogger adapts a go-logger instance to Logger.
func NewGlogLogger(logger glog.Logger) Logger {
	if logger == nil {
		return NewFmtLogger(nil)
	}
	return glogLogger{logger: logger}
}

// NewLogger builds a go-logger backed Logger. format "json" selects JSON output
// and "plain" the dependency-free FmtLogger.
func NewLogger(out io.Writer, level, format string) Logger {
	if out == nil {
		out = os.Stdout
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	if strings.EqualFold(strings.TrimSpace(format), "plain") {
		return NewFmtLogger(out).WithLevel(level)
	}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return NewGlogLogger(glog.NewLogger(
			glog.WithWriter(out),
			glog.WithLoggerTypeJSON(),
			glog.WithLevel(level),
		))
	}
	return NewGlogLogger(glog.NewLogger(
		glog.WithWriter(out),
		glog.WithLevel(level),
	))
}

func (l glogLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l glogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l glogLogger) WithContext(ctx context.Context) Logger {
	return glogLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogLogger) WithFields(fields map[string]any) Logger {
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}

package cron

import (
	"fmt"
	"strings"
	"time"

	rcron "github.com/robfig/cron/v3"

	integration "github.com/goliatone/go-integration"
)

// Parser selects the accepted expression syntax.
type Parser int

const (
	// StandardParser accepts five fields and @ descriptors.
	StandardParser Parser = iota
	// SecondsParser accepts six fields, seconds first, and @ descriptors.
	SecondsParser
)

func (p Parser) build() rcron.ScheduleParser {
	fields := rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor
	if p == SecondsParser {
		fields |= rcron.Second
	}
	return rcron.NewParser(fields)
}

type Option func(*Scheduler)

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithLogger(logger integration.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorHandler receives every failed run. Defaults to a warn log line.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		s.onError = handler
	}
}

func WithParser(p Parser) Option {
	return func(s *Scheduler) {
		s.parser = p.build()
	}
}

// WithJobRecorder reports run outcomes, e.g. to Prometheus.
func WithJobRecorder(r JobRecorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides time.Now for run timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// cronLogger forwards robfig/cron's key/value log calls to integration.Logger.
type cronLogger struct {
	logger integration.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: %s%s", msg, formatKV(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: %s: %v%s", msg, err, formatKV(keysAndValues))
}

func formatKV(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, "%v", kv[i])
		}
	}
	return b.String()
}

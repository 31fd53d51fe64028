package config

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	rcron "github.com/robfig/cron/v3"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/verify"
	"github.com/goliatone/go-integration/wizard"
)

var logLevels = []any{"trace", "debug", "info", "warn", "error", "fatal"}

// Validate checks every section and reports all problems at once as ErrValidation.
// Errors are keyed by the json tags, which mirror the config keys.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Log),
		validation.Field(&c.Catalog),
		validation.Field(&c.Pipeline),
		validation.Field(&c.Wizard),
		validation.Field(&c.Watch),
		validation.Field(&c.Metrics),
	)
	if err != nil {
		return integration.CloneError(integration.ErrValidation, "invalid configuration: "+err.Error(), err, nil)
	}
	return nil
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(lowercaseIn(logLevels...))),
		validation.Field(&l.Format, validation.By(lowercaseIn("console", "json", "plain"))),
	)
}

func (c CatalogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ReloadSchedule, validation.When(c.Path != "", validation.Required, validation.By(cronExpression))),
	)
}

func (p PipelineConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TimeScale, validation.Min(0.0)),
		validation.Field(&p.RecordCount),
		validation.Field(&p.Stages, validation.By(func(any) error {
			if len(p.Stages) == 0 {
				return nil
			}
			return verify.ValidateStages(p.Stages)
		})),
	)
}

func (r RecordCountConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Min, validation.Min(0)),
		validation.Field(&r.Max, validation.By(func(any) error {
			if r.Max <= r.Min {
				return errors.New("must be greater than min")
			}
			return nil
		})),
	)
}

func (w WizardConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.HookFailureMode, validation.By(lowercaseIn(
			string(wizard.HookFailureModeFailOpen),
			string(wizard.HookFailureModeFailClosed),
		))),
		validation.Field(&w.CommitRetries, validation.Min(0)),
		validation.Field(&w.CommitTimeout, validation.Min(time.Duration(0))),
	)
}

func (w WatchConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Schedule, validation.By(cronExpression)),
	)
}

func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Addr, validation.When(m.Enabled, validation.Required)),
	)
}

// lowercaseIn accepts an empty string or one of allowed, ignoring case.
func lowercaseIn(allowed ...any) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return nil
		}
		return validation.In(allowed...).Validate(s)
	}
}

func cronExpression(value any) error {
	expr, _ := value.(string)
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := rcron.ParseStandard(expr); err != nil {
		return errors.New("must be a cron expression or descriptor")
	}
	return nil
}

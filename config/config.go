package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/verify"
	"github.com/goliatone/go-integration/wizard"
)

// EnvPrefix prefixes environment overrides, e.g. INTEGRATION_LOG_LEVEL.
const EnvPrefix = "INTEGRATION"

type Config struct {
	Log      LogConfig      `mapstructure:"log" json:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog" json:"catalog"`
	Pipeline PipelineConfig `mapstructure:"pipeline" json:"pipeline"`
	Wizard   WizardConfig   `mapstructure:"wizard" json:"wizard"`
	Watch    WatchConfig    `mapstructure:"watch" json:"watch"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	// Format is console, json or plain.
	Format string `mapstructure:"format" json:"format"`
}

type CatalogConfig struct {
	// Path to a YAML/JSON catalog; empty uses the built-in catalog.
	Path           string `mapstructure:"path" json:"path"`
	ReloadSchedule string `mapstructure:"reload_schedule" json:"reload_schedule"`
}

type PipelineConfig struct {
	TimeScale   float64           `mapstructure:"time_scale" json:"time_scale"`
	Seed        uint64            `mapstructure:"seed" json:"seed"`
	RecordCount RecordCountConfig `mapstructure:"record_count" json:"record_count"`
	// Stages overrides the default stage sequence when set.
	Stages []verify.Stage `mapstructure:"stages" json:"stages"`
}

type RecordCountConfig struct {
	Min int `mapstructure:"min" json:"min"`
	Max int `mapstructure:"max" json:"max"`
}

type WizardConfig struct {
	HookFailureMode string        `mapstructure:"hook_failure_mode" json:"hook_failure_mode"`
	CommitRetries   int           `mapstructure:"commit_retries" json:"commit_retries"`
	CommitTimeout   time.Duration `mapstructure:"commit_timeout" json:"commit_timeout"`
}

type WatchConfig struct {
	Schedule string `mapstructure:"schedule" json:"schedule"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "console"},
		Catalog:  CatalogConfig{ReloadSchedule: "@every 5m"},
		Pipeline: PipelineConfig{TimeScale: 1, RecordCount: RecordCountConfig{Min: verify.MinRecordCount, Max: verify.MaxRecordCount}},
		Wizard:   WizardConfig{HookFailureMode: string(wizard.HookFailureModeFailOpen), CommitTimeout: 30 * time.Second},
		Watch:    WatchConfig{Schedule: "@every 1m"},
		Metrics:  MetricsConfig{Addr: ":9090"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.reload_schedule", d.Catalog.ReloadSchedule)
	v.SetDefault("pipeline.time_scale", d.Pipeline.TimeScale)
	v.SetDefault("pipeline.seed", d.Pipeline.Seed)
	v.SetDefault("pipeline.record_count.min", d.Pipeline.RecordCount.Min)
	v.SetDefault("pipeline.record_count.max", d.Pipeline.RecordCount.Max)
	v.SetDefault("wizard.hook_failure_mode", d.Wizard.HookFailureMode)
	v.SetDefault("wizard.commit_retries", d.Wizard.CommitRetries)
	v.SetDefault("wizard.commit_timeout", d.Wizard.CommitTimeout)
	v.SetDefault("watch.schedule", d.Watch.Schedule)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// LoadEnvFiles loads dotenv files that exist; missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

// Load reads the optional config file at path, applies INTEGRATION_* env
// overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, integration.CloneError(integration.ErrValidation, "failed to read config", err, map[string]any{
				"path": path,
			})
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, integration.CloneError(integration.ErrValidation, "failed to decode config", err, nil)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// StageList returns the configured stage override or the default sequence.
func (p PipelineConfig) StageList() []verify.Stage {
	if len(p.Stages) == 0 {
		return verify.DefaultStages()
	}
	return append([]verify.Stage(nil), p.Stages...)
}

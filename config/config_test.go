package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/verify"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Len(t, cfg.Pipeline.StageList(), 5)
}

func TestLoadFileWithStageOverride(t *testing.T) {
	path := writeFile(t, "integration.yaml", `
log:
  level: debug
  format: json
catalog:
  path: ./catalog.yaml
pipeline:
  time_scale: 0
  seed: 42
  record_count:
    min: 10
    max: 20
  stages:
    - name: Ping
      simulated_duration: 250ms
      success_probability: 1
      success_message: pong
watch:
  schedule: "@every 30s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "./catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 0.0, cfg.Pipeline.TimeScale)
	assert.Equal(t, uint64(42), cfg.Pipeline.Seed)
	assert.Equal(t, RecordCountConfig{Min: 10, Max: 20}, cfg.Pipeline.RecordCount)
	assert.Equal(t, "@every 30s", cfg.Watch.Schedule)

	stages := cfg.Pipeline.StageList()
	require.Len(t, stages, 1)
	assert.Equal(t, verify.Stage{
		Name:               "Ping",
		SimulatedDuration:  250 * time.Millisecond,
		SuccessProbability: 1,
		SuccessMessage:     "pong",
	}, stages[0])
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "integration.yaml", "log:\n  level: debug\n")
	t.Setenv("INTEGRATION_LOG_LEVEL", "warn")
	t.Setenv("INTEGRATION_METRICS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadEnvFiles(t *testing.T) {
	path := writeFile(t, ".env", "INTEGRATION_WATCH_SCHEDULE=@hourly\n")
	t.Setenv("INTEGRATION_WATCH_SCHEDULE", "")
	require.NoError(t, os.Unsetenv("INTEGRATION_WATCH_SCHEDULE"))

	require.NoError(t, LoadEnvFiles("", filepath.Join(t.TempDir(), "missing.env"), path))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "@hourly", cfg.Watch.Schedule)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"format":       func(c *Config) { c.Log.Format = "xml" },
		"time scale":   func(c *Config) { c.Pipeline.TimeScale = -1 },
		"record range": func(c *Config) { c.Pipeline.RecordCount = RecordCountConfig{Min: 5, Max: 5} },
		"stage":        func(c *Config) { c.Pipeline.Stages = []verify.Stage{{Name: "x", SuccessProbability: 2}} },
		"hook mode":    func(c *Config) { c.Wizard.HookFailureMode = "retry" },
		"retries":      func(c *Config) { c.Wizard.CommitRetries = -1 },
		"level":        func(c *Config) { c.Log.Level = "loud" },
		"watch":        func(c *Config) { c.Watch.Schedule = "every minute" },
		"reload":       func(c *Config) { c.Catalog = CatalogConfig{Path: "catalog.yaml", ReloadSchedule: "* *"} },
		"metrics addr": func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))
}

func TestValidateAcceptsMixedCaseAndDescriptors(t *testing.T) {
	cfg := Defaults()
	cfg.Log.Format = "JSON"
	cfg.Log.Level = "Debug"
	cfg.Wizard.HookFailureMode = "FAIL_CLOSED"
	cfg.Watch.Schedule = "*/5 * * * *"
	cfg.Catalog = CatalogConfig{Path: "catalog.yaml", ReloadSchedule: "@hourly"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateNamesOffendingKey(t *testing.T) {
	cfg := Defaults()
	cfg.Pipeline.TimeScale = -2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time_scale")
	assert.Equal(t, "json", validation.ErrorTag, "validation must not change the process-wide error tag")
}

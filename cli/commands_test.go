package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/catalog"
	"github.com/goliatone/go-integration/config"
	"github.com/goliatone/go-integration/cron"
	"github.com/goliatone/go-integration/verify"
	"github.com/goliatone/go-integration/wizard"
)

func init() {
	color.NoColor = true
}

const emrDraft = `
system_type: emr
system_name: Maple Grove EMR
credentials:
  kind: api_key
  api_key: ${TEST_EMR_KEY}
  server_url: https://emr.example.com
template: pointclickcare
mappings:
  monthly_rate: rate
`

func newTestApp(t *testing.T, probability float64) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Pipeline.TimeScale = 0
	cfg.Pipeline.Seed = 42
	stages := verify.DefaultStages()
	for i := range stages {
		stages[i].SuccessProbability = probability
	}
	cfg.Pipeline.Stages = stages

	var out bytes.Buffer
	app, err := NewApp(cfg, WithOutput(&out), WithAppLogger(integration.NopLogger{}))
	require.NoError(t, err)
	return app, &out
}

func writeDraft(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVerifyCommandCommitsRedactedSummary(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "super-secret-key-9876")
	app, out := newTestApp(t, 1)

	cmd := &VerifyCmd{Draft: writeDraft(t, emrDraft), Commit: true}
	require.NoError(t, cmd.Run(app))

	text := out.String()
	for _, stage := range verify.DefaultStages() {
		assert.Contains(t, text, stage.Name)
	}
	assert.Contains(t, text, "verified: ")
	assert.Contains(t, text, "****9876")
	assert.NotContains(t, text, "super-secret")

	jsonStart := strings.Index(text, "{")
	require.GreaterOrEqual(t, jsonStart, 0)
	var summary struct {
		SessionID      string `json:"session_id"`
		CredentialKind string `json:"credential_kind"`
		Draft          struct {
			SystemName    string            `json:"system_name"`
			FieldMappings map[string]string `json:"field_mappings"`
			TestResult    struct {
				Success     bool `json:"success"`
				RecordCount int  `json:"record_count"`
			} `json:"test_result"`
		} `json:"draft"`
	}
	require.NoError(t, json.Unmarshal([]byte(text[jsonStart:]), &summary))
	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, "api_key", summary.CredentialKind)
	assert.Equal(t, "Maple Grove EMR", summary.Draft.SystemName)
	assert.Equal(t, "patientId", summary.Draft.FieldMappings["resident_id"])
	assert.Equal(t, "rate", summary.Draft.FieldMappings["monthly_rate"])
	assert.True(t, summary.Draft.TestResult.Success)
	assert.GreaterOrEqual(t, summary.Draft.TestResult.RecordCount, verify.MinRecordCount)
	assert.Less(t, summary.Draft.TestResult.RecordCount, verify.MaxRecordCount)
}

func TestVerifyCommandWithoutCommitPrintsNoSummary(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	app, out := newTestApp(t, 1)

	require.NoError(t, (&VerifyCmd{Draft: writeDraft(t, emrDraft)}).Run(app))
	assert.NotContains(t, out.String(), "session_id")
}

func TestVerifyCommandReportsFirstFailedStage(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	app, out := newTestApp(t, 0)

	err := (&VerifyCmd{Draft: writeDraft(t, emrDraft), Commit: true}).Run(app)
	require.Error(t, err)
	assert.True(t, integration.HasCode(err, integration.ErrCodeStageFailed))
	assert.Contains(t, err.Error(), "Connection Test failed")

	text := out.String()
	assert.Contains(t, text, "failed: Connection Test failed")
	assert.NotContains(t, text, "session_id")
}

func TestVerifyCommandNamesIncompleteStep(t *testing.T) {
	app, _ := newTestApp(t, 1)
	body := strings.Replace(emrDraft, "api_key: ${TEST_EMR_KEY}", "api_key: \"\"", 1)

	err := (&VerifyCmd{Draft: writeDraft(t, body)}).Run(app)
	require.Error(t, err)
	assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))
	assert.Contains(t, err.Error(), "Authentication step incomplete")
}

func TestCatalogCommandTable(t *testing.T) {
	app, out := newTestApp(t, 1)

	require.NoError(t, (&CatalogCmd{Format: "table", Section: "all"}).Run(app))
	text := out.String()
	assert.Contains(t, text, "FIELD")
	assert.Contains(t, text, "resident_id")
	assert.Contains(t, text, "TEMPLATE")
	assert.Contains(t, text, "pointclickcare")
	assert.Contains(t, text, "CONNECTOR")
	assert.Contains(t, text, "quickbooks")
}

func TestCatalogCommandSection(t *testing.T) {
	app, out := newTestApp(t, 1)

	require.NoError(t, (&CatalogCmd{Format: "table", Section: "connectors"}).Run(app))
	assert.NotContains(t, out.String(), "FIELD")
	assert.Contains(t, out.String(), "hubspot")
}

func TestCatalogCommandYAMLRoundTrips(t *testing.T) {
	app, out := newTestApp(t, 1)

	require.NoError(t, (&CatalogCmd{Format: "yaml", Section: "all"}).Run(app))

	var file catalog.File
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &file))
	parsed, err := catalog.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, len(app.Catalog().Fields()), len(parsed.Fields()))
	assert.Len(t, file.Templates, len(app.Catalog().Templates()))
}

func TestVerifyJobRunsFreshSessions(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	app, _ := newTestApp(t, 1)
	file, err := ParseDraftFile([]byte(emrDraft))
	require.NoError(t, err)

	job, err := NewVerifyJob(app, file, "@every 1h")
	require.NoError(t, err)
	assert.Equal(t, "verify_draft", job.CronOptions().Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, job.CronHandler()(ctx))
	require.NoError(t, job.CronHandler()(ctx))
}

func TestVerifyJobReturnsStageFailure(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	app, _ := newTestApp(t, 0)
	file, err := ParseDraftFile([]byte(emrDraft))
	require.NoError(t, err)

	job, err := NewVerifyJob(app, file, "@every 1h")
	require.NoError(t, err)
	err = job.Run(context.Background())
	assert.True(t, integration.HasCode(err, integration.ErrCodeStageFailed))
}

func TestVerifyJobOverlappingTicksRunIndependently(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	app, _ := newTestApp(t, 1)
	app.Config.Pipeline.TimeScale = 0.02
	file, err := ParseDraftFile([]byte(emrDraft))
	require.NoError(t, err)
	job, err := NewVerifyJob(app, file, "@every 1s")
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() { errs <- job.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	go func() { errs <- job.Run(context.Background()) }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err, "tick %d", i)
		case <-time.After(5 * time.Second):
			t.Fatal("verify job did not finish")
		}
	}
}

func TestCatalogReloadJobReloadsThroughScheduler(t *testing.T) {
	data, err := yaml.Marshal(catalog.Export(catalog.Default()))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	r, err := catalog.NewReloader(path, catalog.WithReloaderLogger(integration.NopLogger{}))
	require.NoError(t, err)
	job := &CatalogReloadJob{Reloader: r, Schedule: "@every 1h"}
	assert.Equal(t, cron.JobConfig{Name: "catalog_reload", Expression: "@every 1h"}, job.CronOptions())

	sched := cron.NewScheduler()
	registry := NewRegistry().SetCronRegister(SchedulerRegister(sched))
	require.NoError(t, registry.RegisterCommand(job))
	require.NoError(t, registry.Initialize())
	require.Len(t, sched.Handles(), 1)

	require.NoError(t, job.CronHandler()(context.Background()))
	assert.Equal(t, int64(2), r.Loads())
}

func TestWatchCommandStopsOnCancel(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	ctx, cancel := context.WithCancel(context.Background())
	app, _ := newTestApp(t, 1)
	app.Ctx = ctx

	done := make(chan error, 1)
	go func() {
		done <- (&WatchCmd{Draft: writeDraft(t, emrDraft), Schedule: "@every 1h"}).Run(app)
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchRunsImmediatelyAndRecordsJobMetrics(t *testing.T) {
	t.Setenv("TEST_EMR_KEY", "abcdefgh")
	cfg := config.Defaults()
	cfg.Pipeline.TimeScale = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "127.0.0.1:0"
	app, err := NewApp(cfg, WithOutput(&bytes.Buffer{}), WithAppLogger(integration.NopLogger{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Ctx = ctx

	done := make(chan error, 1)
	go func() {
		done <- (&WatchCmd{Draft: writeDraft(t, emrDraft), Schedule: "@every 1h", Immediate: true}).Run(app)
	}()

	assert.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(app.Registry, "integration_scheduled_job_runs_total")
		return err == nil && n > 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWriteCompletedMasksSecrets(t *testing.T) {
	draft := integration.NewDraft()
	draft.SystemName = "Billing"
	draft.Credentials = integration.OAuth2Credentials{ClientID: "client", ClientSecret: "topsecretvalue"}
	msg := wizard.Completed{SessionID: "s-1", Draft: draft, CompletedAt: time.Unix(0, 0).UTC()}

	var buf bytes.Buffer
	require.NoError(t, writeCompleted(&buf, msg))
	assert.NotContains(t, buf.String(), "topsecretvalue")
	assert.Contains(t, buf.String(), `"credential_kind": "oauth2"`)
	assert.Equal(t, "topsecretvalue", draft.Credentials.(integration.OAuth2Credentials).ClientSecret)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/catalog"
	"github.com/goliatone/go-integration/cron"
	"github.com/goliatone/go-integration/dispatcher"
	"github.com/goliatone/go-integration/wizard"
)

// NewCommandRegistry registers the catalog, verify and watch commands and
// initializes the registry.
func NewCommandRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, cmd := range []any{&CatalogCmd{}, &VerifyCmd{}, &WatchCmd{}} {
		if err := r.RegisterCommand(cmd); err != nil {
			return nil, err
		}
	}
	if err := r.Initialize(); err != nil {
		return nil, err
	}
	return r, nil
}

// CatalogCmd prints the active catalog.
type CatalogCmd struct {
	Format  string `help:"Output format." enum:"table,yaml,json" default:"table"`
	Section string `help:"Catalog section to print." enum:"all,fields,templates,connectors" default:"all"`
}

func (c *CatalogCmd) CLIHandler() any { return c }

func (c *CatalogCmd) CLIOptions() Options {
	return Options{
		Name:        "catalog",
		Description: "Print canonical fields, mapping templates and connectors",
		Aliases:     []string{"cat"},
	}
}

func (c *CatalogCmd) Run(app *App) error {
	cat := app.Catalog()
	switch c.Format {
	case "yaml":
		enc := yaml.NewEncoder(app.Out)
		enc.SetIndent(2)
		if err := enc.Encode(catalog.Export(cat)); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog.Export(cat))
	}

	sections := []struct {
		name   string
		render func(io.Writer, *catalog.Catalog) error
	}{
		{"fields", renderFields},
		{"templates", renderTemplates},
		{"connectors", renderConnectors},
	}
	first := true
	for _, s := range sections {
		if c.Section != "all" && c.Section != s.name {
			continue
		}
		if !first {
			fmt.Fprintln(app.Out)
		}
		first = false
		if err := s.render(app.Out, cat); err != nil {
			return err
		}
	}
	return nil
}

// VerifyCmd drives a wizard session from a draft file, runs the
// verification pipeline and optionally commits the result.
type VerifyCmd struct {
	Draft  string `help:"Draft file describing the integration." type:"existingfile" required:""`
	Commit bool   `help:"Commit the integration when verification succeeds."`
}

func (v *VerifyCmd) CLIHandler() any { return v }

func (v *VerifyCmd) CLIOptions() Options {
	return Options{
		Name:        "verify",
		Description: "Verify an integration draft against the simulated sync pipeline",
	}
}

func (v *VerifyCmd) Run(app *App) error {
	file, err := LoadDraftFile(v.Draft)
	if err != nil {
		return err
	}
	p, err := app.Pipeline()
	if err != nil {
		return err
	}

	sub := dispatcher.SubscribeCommandFunc[wizard.Completed](app.Dispatcher, func(_ context.Context, msg wizard.Completed) error {
		return writeCompleted(app.Out, msg)
	})
	defer sub.Unsubscribe()

	c, err := app.Controller(p)
	if err != nil {
		return err
	}
	if err := file.Drive(app.Ctx, c); err != nil {
		return err
	}

	result, err := c.Verify(app.Ctx)
	if err != nil {
		return err
	}
	if err := renderStages(app.Out, c.Stages()); err != nil {
		return err
	}
	renderResult(app.Out, result)

	if !result.Success {
		return integration.CloneError(integration.ErrStageFailed, strings.Join(result.Errors, "; "), nil, map[string]any{
			"session_id": c.ID(),
		})
	}
	if !v.Commit {
		return nil
	}
	return c.Complete(app.Ctx)
}

// WatchCmd re-verifies a draft on a schedule and serves metrics until interrupted.
type WatchCmd struct {
	Draft       string `help:"Draft file describing the integration." type:"existingfile" required:""`
	Schedule    string `help:"Cron expression for re-verification. Defaults to watch.schedule."`
	MetricsAddr string `help:"Address for the metrics endpoint. Defaults to metrics.addr when metrics are enabled."`
	Immediate   bool   `help:"Verify once at startup before the first scheduled run." default:"true" negatable:""`
}

func (w *WatchCmd) CLIHandler() any { return w }

func (w *WatchCmd) CLIOptions() Options {
	return Options{
		Name:        "watch",
		Description: "Periodically re-verify an integration draft",
	}
}

func (w *WatchCmd) Run(app *App) error {
	file, err := LoadDraftFile(w.Draft)
	if err != nil {
		return err
	}
	schedule := w.Schedule
	if schedule == "" {
		schedule = app.Config.Watch.Schedule
	}

	schedOpts := []cron.Option{
		cron.WithLogger(app.Logger),
		cron.WithErrorHandler(func(err error) {
			app.Logger.Warn("scheduled job failed: %v", err)
		}),
	}
	if rec := app.Recorder(); rec != nil {
		schedOpts = append(schedOpts, cron.WithJobRecorder(rec))
	}
	sched := cron.NewScheduler(schedOpts...)
	registry := NewRegistry().SetCronRegister(SchedulerRegister(sched))

	job, err := NewVerifyJob(app, file, schedule)
	if err != nil {
		return err
	}
	if err := registry.RegisterCommand(job); err != nil {
		return err
	}
	if r := app.Reloader(); r != nil {
		if err := registry.RegisterCommand(&CatalogReloadJob{Reloader: r, Schedule: app.Config.Catalog.ReloadSchedule}); err != nil {
			return err
		}
	}
	if err := registry.Initialize(); err != nil {
		return err
	}

	addr := w.MetricsAddr
	if addr == "" && app.Config.Metrics.Enabled {
		addr = app.Config.Metrics.Addr
	}
	var srv *http.Server
	if addr != "" {
		srv = metricsServer(app, addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				app.Logger.Error("metrics server stopped: %v", err)
			}
		}()
		app.Logger.Info("serving metrics on %s/metrics", addr)
	}

	if w.Immediate {
		if _, err := sched.ScheduleAfter(0, cron.JobConfig{Name: "verify_draft_initial"}, job.Run); err != nil {
			return err
		}
	}
	if err := sched.Start(app.Ctx); err != nil {
		return err
	}
	app.Logger.Info("watching %s with schedule %q", w.Draft, schedule)
	<-app.Ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	return sched.Stop(shutdownCtx)
}

func metricsServer(app *App, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// VerifyJob runs one full wizard session per tick. Each tick gets a fresh
// session and pipeline, so overlapping ticks never share stage state.
type VerifyJob struct {
	app      *App
	file     DraftFile
	schedule string
}

// NewVerifyJob fails early when the pipeline config cannot be built.
func NewVerifyJob(app *App, file DraftFile, schedule string) (*VerifyJob, error) {
	if _, err := app.Pipeline(); err != nil {
		return nil, err
	}
	return &VerifyJob{app: app, file: file, schedule: schedule}, nil
}

func (j *VerifyJob) CronOptions() cron.JobConfig {
	return cron.JobConfig{Name: "verify_draft", Expression: j.schedule}
}

func (j *VerifyJob) CronHandler() cron.Job {
	return j.Run
}

// Run drives and verifies a session. A failed verification is returned as ErrStageFailed.
func (j *VerifyJob) Run(ctx context.Context) error {
	p, err := j.app.Pipeline()
	if err != nil {
		return err
	}
	c, err := j.app.Controller(p)
	if err != nil {
		return err
	}
	if err := j.file.Drive(ctx, c); err != nil {
		return err
	}
	result, err := c.Verify(ctx)
	if err != nil {
		return err
	}
	if !result.Success {
		return integration.CloneError(integration.ErrStageFailed, strings.Join(result.Errors, "; "), nil, map[string]any{
			"session_id": c.ID(),
		})
	}
	count := 0
	if result.RecordCount != nil {
		count = *result.RecordCount
	}
	j.app.Logger.Info("verification passed for %s: %d records", j.file.SystemName, count)
	return nil
}

// CatalogReloadJob reloads the catalog file on a schedule.
type CatalogReloadJob struct {
	Reloader *catalog.Reloader
	Schedule string
}

func (j *CatalogReloadJob) CronOptions() cron.JobConfig {
	return cron.JobConfig{Name: "catalog_reload", Expression: j.Schedule}
}

func (j *CatalogReloadJob) CronHandler() cron.Job {
	return j.Reloader.Reload
}

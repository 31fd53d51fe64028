package cli

import (
	"context"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/catalog"
	"github.com/goliatone/go-integration/config"
	"github.com/goliatone/go-integration/dispatcher"
	"github.com/goliatone/go-integration/mapping"
	"github.com/goliatone/go-integration/metrics"
	"github.com/goliatone/go-integration/runner"
	"github.com/goliatone/go-integration/verify"
	"github.com/goliatone/go-integration/wizard"
)

// App carries what every command needs. Commands receive it through kong bindings.
type App struct {
	Ctx      context.Context
	Config   config.Config
	Out      io.Writer
	Logger   integration.Logger
	Registry *prometheus.Registry
	// Dispatcher carries transition events and committed integrations.
	Dispatcher *dispatcher.Dispatcher

	reloader *catalog.Reloader
	static   *catalog.Catalog
	recorder *metrics.PrometheusRecorder
}

type AppOption func(*App)

func WithOutput(out io.Writer) AppOption {
	return func(a *App) {
		if out != nil {
			a.Out = out
		}
	}
}

func WithAppLogger(logger integration.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.Ctx = ctx
		}
	}
}

// NewApp loads the catalog named by the config (or the built-in one) and
// prepares the logger and metrics registry.
func NewApp(cfg config.Config, opts ...AppOption) (*App, error) {
	a := &App{
		Ctx:      context.Background(),
		Config:   cfg,
		Out:      os.Stdout,
		Registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.Logger == nil {
		a.Logger = integration.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	}

	if cfg.Catalog.Path != "" {
		r, err := catalog.NewReloader(cfg.Catalog.Path, catalog.WithReloaderLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.reloader = r
	} else {
		a.static = catalog.Default()
	}

	if cfg.Metrics.Enabled {
		a.recorder = metrics.NewPrometheusRecorder(a.Registry)
	}

	a.Dispatcher = dispatcher.NewDispatcher(dispatcher.WithAllowUnhandled())
	dispatcher.Observe(a.Dispatcher, "#", a.audit)
	return a, nil
}

func (a *App) audit(_ context.Context, msg integration.Message) error {
	switch m := msg.(type) {
	case wizard.TransitionEvent:
		a.Logger.Debug("transition %s %s %s -> %s session=%s", m.Phase, m.Event, m.From, m.To, m.SessionID)
	case wizard.Completed:
		a.Logger.Info("integration committed session=%s system=%s", m.SessionID, m.Draft.SystemName)
	}
	return nil
}

// Catalog returns the active catalog.
func (a *App) Catalog() *catalog.Catalog {
	if a.reloader != nil {
		return a.reloader.Catalog()
	}
	return a.static
}

// Reloader is nil when the built-in catalog is used.
func (a *App) Reloader() *catalog.Reloader {
	return a.reloader
}

// Recorder is nil when metrics are disabled.
func (a *App) Recorder() *metrics.PrometheusRecorder {
	return a.recorder
}

// Pipeline builds a verification pipeline from the pipeline config.
func (a *App) Pipeline() (*verify.Pipeline, error) {
	pc := a.Config.Pipeline

	execOpts := []verify.SimulatedOption{verify.WithTimeScale(pc.TimeScale)}
	var rng *rand.Rand
	if pc.Seed != 0 {
		execOpts = append(execOpts, verify.WithSeed(pc.Seed))
		rng = rand.New(rand.NewPCG(pc.Seed, pc.Seed+1))
	}

	opts := []verify.Option{
		verify.WithStages(pc.StageList()...),
		verify.WithExecutor(verify.NewSimulatedExecutor(execOpts...)),
		verify.WithRecordCounter(verify.RecordCountRange(rng, pc.RecordCount.Min, pc.RecordCount.Max)),
		verify.WithLogger(a.Logger),
	}
	if a.recorder != nil {
		opts = append(opts, verify.WithMetricsRecorder(a.recorder))
	}
	return verify.New(opts...)
}

// Controller opens a wizard session over the active catalog.
func (a *App) Controller(p *verify.Pipeline, opts ...wizard.Option) (*wizard.Controller, error) {
	base := []wizard.Option{
		wizard.WithPipeline(p),
		wizard.WithLogger(a.Logger),
		wizard.WithHookFailureMode(wizard.HookFailureMode(a.Config.Wizard.HookFailureMode)),
		wizard.WithSchemaProvider(func() mapping.Schema { return a.Catalog() }),
		wizard.WithHooks(wizard.HookFunc(func(ctx context.Context, evt wizard.TransitionEvent) error {
			return dispatcher.Dispatch(ctx, a.Dispatcher, evt)
		})),
		wizard.WithCommitter(dispatcher.Committer[wizard.Completed](a.Dispatcher)),
		wizard.WithCommitRunner(runner.NewHandler(
			runner.WithMaxRetries(a.Config.Wizard.CommitRetries),
			runner.WithAttemptError(integration.ErrCommitFailed),
			runner.WithTimeout(a.Config.Wizard.CommitTimeout),
			runner.WithRetryStrategy(runner.ExponentialBackoffStrategy{Base: 200 * time.Millisecond, Factor: 2, Max: 5 * time.Second}),
			runner.WithLogger(a.Logger),
		)),
	}
	if a.recorder != nil {
		base = append(base, wizard.WithRecorder(a.recorder))
	}
	return wizard.New(a.Catalog(), append(base, opts...)...)
}

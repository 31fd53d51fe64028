package cli

import (
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-integration/cron"
)

// Command is exposed as a kong subcommand.
type Command interface {
	CLIHandler() any
	CLIOptions() Options
}

// CronCommand is registered on the scheduler.
type CronCommand interface {
	CronHandler() cron.Job
	CronOptions() cron.JobConfig
}

type Options struct {
	Name        string
	Description string
	Group       string
	Aliases     []string
	Hidden      bool
}

func (opts Options) BuildTags() []string {
	var tags []string
	if len(opts.Aliases) > 0 {
		tags = append(tags, "aliases:"+strings.Join(opts.Aliases, ","))
	}
	if opts.Hidden {
		tags = append(tags, `hidden:""`)
	}
	return tags
}

// Registry collects commands and wires them into kong and the cron scheduler.
type Registry struct {
	mu                 sync.RWMutex
	commandsToRegister []any
	initialized        bool
	cronRegisterFn     func(cfg cron.JobConfig, job cron.Job) error
	cliOptions         []kong.Option
}

func NewRegistry() *Registry {
	return &Registry{
		cliOptions: make([]kong.Option, 0),
	}
}

// SetCronRegister sets how CronCommands are scheduled.
func (r *Registry) SetCronRegister(fn func(cfg cron.JobConfig, job cron.Job) error) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cronRegisterFn = fn
	return r
}

// SchedulerRegister adapts a Scheduler to SetCronRegister.
func SchedulerRegister(s *cron.Scheduler) func(cron.JobConfig, cron.Job) error {
	return func(cfg cron.JobConfig, job cron.Job) error {
		_, err := s.ScheduleCron(cfg, job)
		return err
	}
}

func (r *Registry) RegisterCommand(cmd any) error {
	if cmd == nil {
		return errors.New("command cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_COMMAND")
	}
	_, isCLI := cmd.(Command)
	_, isCron := cmd.(CronCommand)
	if !isCLI && !isCron {
		return errors.New("command exposes neither a CLI nor a cron handler", errors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_COMMAND")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("cannot register commands after registry has been initialized", errors.CategoryConflict).
			WithTextCode("REGISTRY_ALREADY_INITIALIZED")
	}
	r.commandsToRegister = append(r.commandsToRegister, cmd)
	return nil
}

func (r *Registry) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("registry already initialized", errors.CategoryConflict).
			WithTextCode("REGISTRY_ALREADY_INITIALIZED")
	}

	var errs error
	for _, cmd := range r.commandsToRegister {
		if cliCmd, ok := cmd.(Command); ok {
			r.registerWithCLI(cliCmd)
		}
		if cronCmd, ok := cmd.(CronCommand); ok {
			if err := r.registerWithCron(cronCmd); err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}

	r.initialized = true
	return errs
}

func (r *Registry) registerWithCron(cronCmd CronCommand) error {
	if r.cronRegisterFn == nil {
		return errors.New("cron scheduler not provided during initialization", errors.CategoryBadInput).
			WithTextCode("CRON_SCHEDULER_NOT_SET")
	}

	cfg := cronCmd.CronOptions()
	if err := r.cronRegisterFn(cfg, cronCmd.CronHandler()); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "cron scheduler registration failed").
			WithTextCode("CRON_REGISTRATION_FAILED").
			WithMetadata(map[string]any{
				"job":        cfg.Name,
				"expression": cfg.Expression,
			})
	}
	return nil
}

func (r *Registry) registerWithCLI(cliCmd Command) {
	opts := cliCmd.CLIOptions()
	r.cliOptions = append(r.cliOptions, kong.DynamicCommand(
		opts.Name,
		opts.Description,
		opts.Group,
		cliCmd.CLIHandler(),
		opts.BuildTags()...,
	))
}

// KongOptions returns the dynamic commands collected by Initialize.
func (r *Registry) KongOptions() ([]kong.Option, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		return nil, errors.New("registry not initialized", errors.CategoryConflict).
			WithTextCode("REGISTRY_NOT_INITIALIZED")
	}

	options := make([]kong.Option, len(r.cliOptions))
	copy(options, r.cliOptions)
	return options, nil
}

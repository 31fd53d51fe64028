package cron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	rcron "github.com/robfig/cron/v3"

	integration "github.com/goliatone/go-integration"
)

const ErrCodeJobFailed = "CRON_JOB_FAILED"

// Job is a scheduled unit of work. The context is canceled when the job's
// timeout elapses or the scheduler stops.
type Job func(ctx context.Context) error

// JobConfig describes how a job is scheduled.
type JobConfig struct {
	Name       string
	Expression string
	Timeout    time.Duration
}

// JobRecorder observes every finished run. err is nil on success.
type JobRecorder interface {
	RecordJob(name string, err error, duration time.Duration)
}

type nopJobRecorder struct{}

func (nopJobRecorder) RecordJob(string, error, time.Duration) {}

// Scheduler runs catalog reloads and scheduled verifications on top of robfig/cron.
type Scheduler struct {
	mu       sync.Mutex
	cron     *rcron.Cron
	parser   rcron.ScheduleParser
	location *time.Location
	logger   integration.Logger
	recorder JobRecorder
	onError  func(error)
	now      func() time.Time

	recoverPanic func(string, *error, ...map[string]any)

	baseCtx context.Context
	cancel  context.CancelFunc

	nextID  int64
	handles map[int64]*handle
}

// NewScheduler creates a scheduler. Expressions use the standard five field
// syntax plus descriptors unless WithParser says otherwise.
func NewScheduler(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		parser:   StandardParser.build(),
		location: time.Local,
		logger:   integration.NopLogger{},
		recorder: nopJobRecorder{},
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
		handles:  make(map[int64]*handle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.onError == nil {
		s.onError = func(err error) {
			s.logger.Warn("scheduled job failed: %v", err)
		}
	}
	s.recoverPanic = integration.MakePanicHandler(integration.LoggerPanicLogger(s.logger))
	logger := cronLogger{logger: s.logger}
	s.cron = rcron.New(
		rcron.WithLocation(s.location),
		rcron.WithParser(s.parser),
		rcron.WithLogger(logger),
		rcron.WithChain(rcron.SkipIfStillRunning(logger)),
	)
	return s
}

// Parse validates expression with the scheduler's parser.
func (s *Scheduler) Parse(expression string) (rcron.Schedule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, integration.CloneError(integration.ErrValidation, "cron expression cannot be empty", nil, nil)
	}
	schedule, err := s.parser.Parse(expression)
	if err != nil {
		return nil, integration.CloneError(integration.ErrValidation,
			fmt.Sprintf("invalid cron expression %q: %v", expression, err), err,
			map[string]any{"expression": expression})
	}
	return schedule, nil
}

// ScheduleCron schedules a recurring job. A failed run is reported and the
// job stays scheduled. A tick that fires while the previous run is still
// going is skipped.
func (s *Scheduler) ScheduleCron(cfg JobConfig, job Job) (Handle, error) {
	if job == nil {
		return nil, integration.CloneError(integration.ErrValidation, "job cannot be nil", nil, map[string]any{"job": cfg.Name})
	}
	schedule, err := s.Parse(cfg.Expression)
	if err != nil {
		return nil, err
	}

	h := s.newHandle(cfg.Name)
	run := s.wrap(cfg, h, job)
	h.entryID = s.cron.Schedule(schedule, rcron.FuncJob(func() {
		if h.Status().terminal() {
			return
		}
		h.setStatus(StatusRunning, nil)
		if err := run(); err != nil {
			h.setStatus(StatusFailed, err)
			s.onError(err)
			return
		}
		if !h.Status().terminal() {
			h.setStatus(StatusIdle, nil)
		}
	}))
	s.store(h)
	s.logger.Debug("scheduled %s with %q", h.Name(), cfg.Expression)
	return h, nil
}

// ScheduleAfter runs job once after delay.
func (s *Scheduler) ScheduleAfter(delay time.Duration, cfg JobConfig, job Job) (Handle, error) {
	if job == nil {
		return nil, integration.CloneError(integration.ErrValidation, "job cannot be nil", nil, map[string]any{"job": cfg.Name})
	}
	if delay < 0 {
		delay = 0
	}

	h := s.newHandle(cfg.Name)
	s.store(h)
	run := s.wrap(cfg, h, job)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-h.Done():
			return
		case <-s.baseCtx.Done():
			return
		}

		if h.Status().terminal() {
			return
		}
		h.setStatus(StatusRunning, nil)
		err := run()
		s.remove(h.id)
		if err != nil {
			s.onError(err)
			h.setTerminal(StatusFailed, err)
			return
		}
		h.setTerminal(StatusCompleted, nil)
	}()

	return h, nil
}

func (s *Scheduler) wrap(cfg JobConfig, h *handle, job Job) func() error {
	name := h.Name()
	return func() (err error) {
		ctx := s.baseCtx
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		started := s.now()
		run := h.markRun(started)
		defer func() {
			s.recorder.RecordJob(name, err, s.now().Sub(started))
			if err != nil {
				err = errors.Wrap(err, errors.CategoryHandler, fmt.Sprintf("scheduled job %s failed", name)).
					WithTextCode(ErrCodeJobFailed).
					WithMetadata(map[string]any{"job": name, "run": run})
			}
		}()
		defer s.recoverPanic("cron.job", &err, map[string]any{"job": name})

		return job(ctx)
	}
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop cancels running jobs, marks open handles as stopped and waits for
// running jobs to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	stopped := s.cron.Stop()

	s.mu.Lock()
	open := make([]*handle, 0, len(s.handles))
	for _, h := range s.handles {
		open = append(open, h)
	}
	s.handles = make(map[int64]*handle)
	s.mu.Unlock()

	for _, h := range open {
		if h.entryID > 0 {
			s.cron.Remove(h.entryID)
		}
		if !h.Status().terminal() {
			h.setTerminal(StatusStopped, nil)
		}
	}

	if ctx == nil {
		return nil
	}
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next activation of a recurring handle, or the zero time.
func (s *Scheduler) Next(h Handle) time.Time {
	ch, ok := h.(*handle)
	if !ok || ch.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(ch.entryID).Next
}

// Handles lists the handles still owned by the scheduler.
func (s *Scheduler) Handles() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Handle, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, h)
	}
	return out
}

func (s *Scheduler) unschedule(id int64) {
	h := s.remove(id)
	if h != nil && h.entryID > 0 {
		s.cron.Remove(h.entryID)
	}
}

func (s *Scheduler) remove(id int64) *handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handles[id]
	delete(s.handles, id)
	return h
}

func (s *Scheduler) store(h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[h.id] = h
}

func (s *Scheduler) newHandle(name string) *handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("job_%d", s.nextID)
	}
	return &handle{
		scheduler: s,
		id:        s.nextID,
		name:      name,
		status:    StatusScheduled,
		done:      make(chan struct{}),
	}
}

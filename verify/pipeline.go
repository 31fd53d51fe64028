package verify

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	integration "github.com/goliatone/go-integration"
)

const (
	MinRecordCount = 1000
	MaxRecordCount = 10000
)

// StageEvent is emitted every time a stage changes status.
type StageEvent struct {
	RunID string
	Index int
	State StageState
}

// Listener receives stage events synchronously, outside the pipeline lock.
type Listener func(StageEvent)

// RecordCounter produces the record count reported on a successful run.
type RecordCounter func() int

// UniformRecordCount draws from [MinRecordCount, MaxRecordCount).
func UniformRecordCount(rng *rand.Rand) RecordCounter {
	return RecordCountRange(rng, MinRecordCount, MaxRecordCount)
}

// RecordCountRange draws uniformly from [lo, hi). A nil rng uses the
// package-level source.
func RecordCountRange(rng *rand.Rand, lo, hi int) RecordCounter {
	if hi <= lo {
		hi = lo + 1
	}
	var mu sync.Mutex
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		if rng == nil {
			return lo + rand.IntN(hi-lo)
		}
		return lo + rng.IntN(hi-lo)
	}
}

// Pipeline runs the verification stages in order and halts on the first
// failure. It is the only writer of Draft.TestResult.
type Pipeline struct {
	mu        sync.RWMutex
	stages    []Stage
	states    []StageState
	running   bool
	runID     string
	result    *integration.TestResult
	executor  StageExecutor
	counter   RecordCounter
	recorder  MetricsRecorder
	listeners []Listener
	logger    integration.Logger
	now       func() time.Time

	recoverPanic func(string, *error, ...map[string]any)
}

type Option func(*Pipeline)

func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.stages = append([]Stage(nil), stages...)
	}
}

func WithExecutor(executor StageExecutor) Option {
	return func(p *Pipeline) {
		if executor != nil {
			p.executor = executor
		}
	}
}

func WithRecordCounter(counter RecordCounter) Option {
	return func(p *Pipeline) {
		if counter != nil {
			p.counter = counter
		}
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(p *Pipeline) {
		if recorder != nil {
			p.recorder = recorder
		}
	}
}

func WithListener(listener Listener) Option {
	return func(p *Pipeline) {
		if listener != nil {
			p.listeners = append(p.listeners, listener)
		}
	}
}

func WithLogger(logger integration.Logger) Option {
	return func(p *Pipeline) {
		p.logger = integration.NormalizeLogger(logger)
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a pipeline over DefaultStages with a SimulatedExecutor unless
// overridden.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		stages:   DefaultStages(),
		recorder: nopRecorder{},
		logger:   integration.NopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if err := ValidateStages(p.stages); err != nil {
		return nil, integration.CloneError(integration.ErrValidation, "invalid verification stages", err, nil)
	}
	if p.executor == nil {
		p.executor = NewSimulatedExecutor()
	}
	if p.counter == nil {
		p.counter = UniformRecordCount(nil)
	}
	p.states = pendingStates(p.stages)
	p.recoverPanic = integration.MakePanicHandler(integration.LoggerPanicLogger(p.logger))
	return p, nil
}

// execute reports a panicking executor as a failed stage.
func (p *Pipeline) execute(ctx context.Context, stage Stage, draft *integration.Draft) (err error) {
	defer p.recoverPanic("verify.stage", &err, map[string]any{"stage": stage.Name})
	return p.executor.Execute(ctx, stage, draft)
}

// Run executes every stage against draft. A failed stage is an outcome, not an
// error: Run returns the failing TestResult with a nil error. When ctx is done
// mid-run the running stage is marked as an error, the remaining stages stay
// pending, no result is written and ctx.Err() is returned.
func (p *Pipeline) Run(ctx context.Context, draft *integration.Draft) (*integration.TestResult, error) {
	if draft == nil {
		return nil, integration.CloneError(integration.ErrValidation, "draft is required", nil, nil)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, integration.CloneError(integration.ErrPipelineRunning, "", nil, map[string]any{"run_id": p.runID})
	}
	p.running = true
	p.runID = uuid.NewString()
	p.result = nil
	p.states = pendingStates(p.stages)
	runID := p.runID
	stages := append([]Stage(nil), p.stages...)
	p.mu.Unlock()

	draft.TestResult = nil
	logger := integration.WithLoggerFields(p.logger.WithContext(ctx), map[string]any{
		"run_id":      runID,
		"system_name": draft.SystemName,
	})
	logger.Info("verification started stages=%d", len(stages))

	runStart := p.now()
	for idx, stage := range stages {
		started := p.now()
		p.update(runID, idx, StageState{Name: stage.Name, Status: StatusRunning, StartedAt: started})

		err := p.execute(ctx, stage, draft.Clone())
		finished := p.now()

		if ctx.Err() != nil || isContextErr(err) {
			p.update(runID, idx, StageState{
				Name:       stage.Name,
				Status:     StatusError,
				Message:    "canceled",
				Detail:     "canceled",
				StartedAt:  started,
				FinishedAt: finished,
			})
			p.recorder.RecordCanceled(stage.Name)
			p.finish(nil)
			logger.Warn("verification canceled at stage=%s", stage.Name)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}

		if err != nil {
			p.update(runID, idx, StageState{
				Name:       stage.Name,
				Status:     StatusError,
				Message:    stage.FailureMessage,
				Detail:     stage.FailureDetail,
				StartedAt:  started,
				FinishedAt: finished,
			})
			p.recorder.RecordStage(stage.Name, StatusError, finished.Sub(started))
			result := &integration.TestResult{
				Success: false,
				Errors:  []string{stage.Name + " failed"},
			}
			draft.TestResult = result.Clone()
			p.finish(result)
			p.recorder.RecordRun(false, p.now().Sub(runStart))
			logger.Warn("verification failed at stage=%s: %v", stage.Name, err)
			return result, nil
		}

		p.update(runID, idx, StageState{
			Name:       stage.Name,
			Status:     StatusSuccess,
			Message:    stage.SuccessMessage,
			StartedAt:  started,
			FinishedAt: finished,
		})
		p.recorder.RecordStage(stage.Name, StatusSuccess, finished.Sub(started))
	}

	count := p.counter()
	result := &integration.TestResult{Success: true, RecordCount: &count}
	draft.TestResult = result.Clone()
	p.finish(result)
	p.recorder.RecordRun(true, p.now().Sub(runStart))
	logger.Info("verification succeeded records=%d", count)
	return result, nil
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// RunID of the current or last run; empty before the first run.
func (p *Pipeline) RunID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runID
}

// Snapshot returns a copy of every stage state in order.
func (p *Pipeline) Snapshot() []StageState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]StageState(nil), p.states...)
}

// Result of the last completed run, or nil.
func (p *Pipeline) Result() *integration.TestResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result.Clone()
}

func (p *Pipeline) Stages() []Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Stage(nil), p.stages...)
}

// Reset returns every stage to pending and forgets the last result. It is a
// no-op while a run is in progress.
func (p *Pipeline) Reset() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.states = pendingStates(p.stages)
	p.result = nil
	return true
}

func (p *Pipeline) update(runID string, idx int, state StageState) {
	p.mu.Lock()
	p.states[idx] = state
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	evt := StageEvent{RunID: runID, Index: idx, State: state}
	for _, l := range listeners {
		l(evt)
	}
}

func (p *Pipeline) finish(result *integration.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.result = result.Clone()
}

func pendingStates(stages []Stage) []StageState {
	states := make([]StageState, len(stages))
	for i, s := range stages {
		states[i] = StageState{Name: s.Name, Status: StatusPending}
	}
	return states
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

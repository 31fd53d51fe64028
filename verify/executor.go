package verify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	integration "github.com/goliatone/go-integration"
)

// StageExecutor performs one verification stage. A nil error is success; a
// non-nil error fails the stage. Implementations must return promptly once
// ctx is done.
type StageExecutor interface {
	Execute(ctx context.Context, stage Stage, draft *integration.Draft) error
}

// StageExecutorFunc is an adapter that lets you use a function as a StageExecutor
type StageExecutorFunc func(ctx context.Context, stage Stage, draft *integration.Draft) error

func (f StageExecutorFunc) Execute(ctx context.Context, stage Stage, draft *integration.Draft) error {
	return f(ctx, stage, draft)
}

// Sleeper suspends for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper waits on a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// InstantSleeper never waits; it only reports ctx cancellation.
type InstantSleeper struct{}

func (InstantSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// SimulatedExecutor stands in for a real verification call: it waits for the
// stage's simulated duration and then draws one Bernoulli trial with the
// stage's success probability.
type SimulatedExecutor struct {
	mu        sync.Mutex
	rng       *rand.Rand
	sleeper   Sleeper
	timeScale float64
}

type SimulatedOption func(*SimulatedExecutor)

// WithSeed makes the outcome sequence reproducible.
func WithSeed(seed uint64) SimulatedOption {
	return func(e *SimulatedExecutor) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithSleeper(s Sleeper) SimulatedOption {
	return func(e *SimulatedExecutor) {
		if s != nil {
			e.sleeper = s
		}
	}
}

// WithTimeScale multiplies every simulated duration; 0 disables waiting.
func WithTimeScale(scale float64) SimulatedOption {
	return func(e *SimulatedExecutor) {
		if scale >= 0 {
			e.timeScale = scale
		}
	}
}

func NewSimulatedExecutor(opts ...SimulatedOption) *SimulatedExecutor {
	e := &SimulatedExecutor{
		sleeper:   TimerSleeper{},
		timeScale: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

func (e *SimulatedExecutor) Execute(ctx context.Context, stage Stage, _ *integration.Draft) error {
	wait := time.Duration(float64(stage.SimulatedDuration) * e.timeScale)
	if err := e.sleeper.Sleep(ctx, wait); err != nil {
		return err
	}
	if e.draw() < stage.SuccessProbability {
		return nil
	}
	return stageFailure(stage)
}

func (e *SimulatedExecutor) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// ScriptedExecutor returns predetermined outcomes: stages listed in Fail fail,
// all others succeed. It records the stages it was asked to run.
type ScriptedExecutor struct {
	mu      sync.Mutex
	fail    map[string]bool
	sleeper Sleeper
	calls   []string
}

// NewScriptedExecutor fails the named stages.
func NewScriptedExecutor(fail ...string) *ScriptedExecutor {
	e := &ScriptedExecutor{fail: make(map[string]bool), sleeper: InstantSleeper{}}
	for _, name := range fail {
		e.fail[name] = true
	}
	return e
}

// WithSleeper sets how the executor waits per stage.
func (e *ScriptedExecutor) WithSleeper(s Sleeper) *ScriptedExecutor {
	if s != nil {
		e.sleeper = s
	}
	return e
}

// SetFailures replaces the failing stage set.
func (e *ScriptedExecutor) SetFailures(fail ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = make(map[string]bool, len(fail))
	for _, name := range fail {
		e.fail[name] = true
	}
}

func (e *ScriptedExecutor) Execute(ctx context.Context, stage Stage, _ *integration.Draft) error {
	e.mu.Lock()
	e.calls = append(e.calls, stage.Name)
	fail := e.fail[stage.Name]
	sleeper := e.sleeper
	e.mu.Unlock()

	if err := sleeper.Sleep(ctx, stage.SimulatedDuration); err != nil {
		return err
	}
	if fail {
		return stageFailure(stage)
	}
	return nil
}

// Calls lists executed stage names in order, across runs.
func (e *ScriptedExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func stageFailure(stage Stage) error {
	return integration.CloneError(
		integration.ErrStageFailed,
		fmt.Sprintf("%s failed", stage.Name),
		nil,
		map[string]any{"stage": stage.Name},
	)
}

package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/mapping"
	"github.com/goliatone/go-integration/runner"
	"github.com/goliatone/go-integration/verify"
)

// Recorder observes wizard transitions and commits.
type Recorder interface {
	RecordTransition(event, from, to string, allowed bool)
	RecordCompletion(success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, string, string, bool) {}
func (nopRecorder) RecordCompletion(bool)                         {}

// Controller owns one configuration session: the current step and the draft.
// Mutators are scoped to the step that collects their data and return
// ErrWrongStep elsewhere.
type Controller struct {
	mu sync.Mutex

	id         string
	step       Step
	draft      *integration.Draft
	schema     mapping.Schema
	engine     *mapping.Engine
	generation uint64
	verifying  bool
	completing bool
	cancelRun  context.CancelFunc
	// discarding is set while a run canceled by a reset is still unwinding.
	discarding bool

	schemaFn    func() mapping.Schema
	pipeline    *verify.Pipeline
	guards      *GuardRegistry
	transitions []Transition
	table       transitionTable
	hooks       []Hook
	hookMode    HookFailureMode
	committer   integration.Commander[Completed]
	commitRun   *runner.Handler
	recorder    Recorder
	logger      integration.Logger
	now         func() time.Time
}

type Option func(*Controller)

func WithLogger(logger integration.Logger) Option {
	return func(c *Controller) {
		c.logger = integration.NormalizeLogger(logger)
	}
}

func WithPipeline(p *verify.Pipeline) Option {
	return func(c *Controller) {
		if p != nil {
			c.pipeline = p
		}
	}
}

func WithGuards(g *GuardRegistry) Option {
	return func(c *Controller) {
		if g != nil {
			c.guards = g
		}
	}
}

func WithTransitions(transitions ...Transition) Option {
	return func(c *Controller) {
		c.transitions = append([]Transition(nil), transitions...)
	}
}

func WithHooks(hooks ...Hook) Option {
	return func(c *Controller) {
		c.hooks = append(c.hooks, hooks...)
	}
}

func WithHookFailureMode(mode HookFailureMode) Option {
	return func(c *Controller) {
		c.hookMode = normalizeHookFailureMode(mode)
	}
}

// WithCommitter sets the system of record that receives completed sessions.
func WithCommitter(committer integration.Commander[Completed]) Option {
	return func(c *Controller) {
		if committer != nil {
			c.committer = committer
		}
	}
}

// WithCommitRunner sets the timeout and retry policy for commits.
func WithCommitRunner(h *runner.Handler) Option {
	return func(c *Controller) {
		if h != nil {
			c.commitRun = h
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSchemaProvider re-reads the schema at the start of every session, so a
// reloaded catalog is picked up on reset.
func WithSchemaProvider(fn func() mapping.Schema) Option {
	return func(c *Controller) {
		c.schemaFn = fn
	}
}

// New opens a session on step 1 with an empty draft.
func New(schema mapping.Schema, opts ...Option) (*Controller, error) {
	c := &Controller{
		schema:      schema,
		guards:      DefaultGuards(),
		transitions: DefaultTransitions(),
		hookMode:    HookFailureModeFailOpen,
		recorder:    nopRecorder{},
		logger:      integration.NopLogger{},
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.schemaFn != nil {
		if s := c.schemaFn(); s != nil {
			c.schema = s
		}
	}
	if c.schema == nil {
		return nil, integration.CloneError(integration.ErrValidation, "schema is required", nil, nil)
	}

	table, err := compileTransitions(c.transitions, c.guards)
	if err != nil {
		return nil, integration.CloneError(integration.ErrValidation, "invalid transition table", err, nil)
	}
	c.table = table

	if c.pipeline == nil {
		p, err := verify.New(verify.WithLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.pipeline = p
	}
	if c.committer == nil {
		c.committer = integration.CommandFunc[Completed](func(ctx context.Context, msg Completed) error {
			c.log(ctx, msg.SessionID).Info("integration %q completed without a system of record", msg.Draft.SystemName)
			return nil
		})
	}

	if c.commitRun == nil {
		c.commitRun = runner.NewHandler(runner.WithLogger(c.logger), runner.WithAttemptError(integration.ErrCommitFailed))
	}

	c.resetLocked()
	return c, nil
}

// ID of the current session; a new one is issued on every reset.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Draft returns a copy of the session draft.
func (c *Controller) Draft() *integration.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

func (c *Controller) Schema() mapping.Schema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

// Verifying reports whether the verification pipeline is running.
func (c *Controller) Verifying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifying
}

// Stages returns the pipeline stage states for the sync test step. States of
// a run discarded by a reset are never shown.
func (c *Controller) Stages() []verify.StageState {
	c.mu.Lock()
	discarding := c.discarding
	c.mu.Unlock()
	if discarding {
		stages := c.pipeline.Stages()
		out := make([]verify.StageState, len(stages))
		for i, s := range stages {
			out[i] = verify.StageState{Name: s.Name, Status: verify.StatusPending}
		}
		return out
	}
	return c.pipeline.Snapshot()
}

// Step 1

func (c *Controller) SetSystemType(st integration.SystemType) error {
	return c.mutate(StepSystemType, func() error {
		if !st.Valid() {
			return integration.CloneError(integration.ErrValidation, fmt.Sprintf("unknown system type %q", st), nil, nil)
		}
		c.draft.SystemType = st
		return nil
	})
}

func (c *Controller) SetSystemName(name string) error {
	return c.mutate(StepSystemType, func() error {
		c.draft.SystemName = name
		return nil
	})
}

// Step 2

// SelectCredentialKind switches the credential variant. Switching starts from
// an empty variant; reselecting the current kind keeps its values.
func (c *Controller) SelectCredentialKind(kind integration.CredentialKind) error {
	return c.mutate(StepAuthentication, func() error {
		if c.draft.CredentialKind() == kind {
			return nil
		}
		if kind != integration.CredentialKindNone && integration.NewCredentials(kind) == nil {
			return integration.CloneError(integration.ErrValidation, fmt.Sprintf("unknown credential kind %q", kind), nil, nil)
		}
		c.draft.Credentials = integration.NewCredentials(kind)
		return nil
	})
}

func (c *Controller) SetCredentials(creds integration.Credentials) error {
	return c.mutate(StepAuthentication, func() error {
		c.draft.Credentials = creds
		return nil
	})
}

// Step 3

func (c *Controller) ApplyTemplate(templateID string) error {
	return c.mutate(StepFieldMapping, func() error {
		return c.engine.ApplyTemplate(templateID)
	})
}

func (c *Controller) SetMapping(fieldID, source string) error {
	return c.mutate(StepFieldMapping, func() error {
		return c.engine.SetMapping(fieldID, source)
	})
}

// ApplySuggestions fills unmapped fields from sourceFields above minScore.
func (c *Controller) ApplySuggestions(sourceFields []string, minScore float64) ([]mapping.Suggestion, error) {
	var applied []mapping.Suggestion
	err := c.mutate(StepFieldMapping, func() error {
		applied = c.engine.ApplySuggestions(sourceFields, minScore)
		return nil
	})
	return applied, err
}

func (c *Controller) LastTemplate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.LastTemplate()
}

func (c *Controller) Completeness() mapping.Completeness {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Completeness()
}

func (c *Controller) RequiredSatisfied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.RequiredSatisfied()
}

func (c *Controller) MissingRequired() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.MissingRequired()
}

func (c *Controller) DuplicateSources() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.DuplicateSources()
}

// Navigation

func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.table.lookup(EventAdvance, c.step)
	return ok && c.guardsPass(t)
}

func (c *Controller) CanRetreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.table.lookup(EventRetreat, c.step)
	return ok && c.guardsPass(t)
}

// CanComplete is true only on the sync test step after a successful run.
func (c *Controller) CanComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canCompleteLocked()
}

// Advance moves one step forward when the current step's predicate holds.
// An unmet predicate is not an error: it returns false. Errors come only from
// fail-closed lifecycle hooks.
func (c *Controller) Advance(ctx context.Context) (bool, error) {
	return c.fire(ctx, EventAdvance)
}

// Retreat moves one step back. It is blocked while verification runs.
func (c *Controller) Retreat(ctx context.Context) (bool, error) {
	return c.fire(ctx, EventRetreat)
}

func (c *Controller) fire(ctx context.Context, event Event) (bool, error) {
	c.mu.Lock()
	from := c.step
	t, ok := c.table.lookup(event, from)
	if !ok {
		c.mu.Unlock()
		c.recorder.RecordTransition(string(event), from.String(), from.String(), false)
		return false, nil
	}
	if !c.guardsPass(t) {
		evt := c.eventLocked(TransitionPhaseRejected, t, "guard rejected")
		c.mu.Unlock()
		c.recorder.RecordTransition(string(event), from.String(), t.To.String(), false)
		c.log(ctx, evt.SessionID).Debug("transition %s rejected by guard", t.ID())
		return false, fanoutHooks(ctx, c.hooks, evt, c.hookMode, c.logger)
	}
	attempted := c.eventLocked(TransitionPhaseAttempted, t, "")
	gen := c.generation
	c.mu.Unlock()

	if err := fanoutHooks(ctx, c.hooks, attempted, c.hookMode, c.logger); err != nil {
		c.recorder.RecordTransition(string(event), from.String(), t.To.String(), false)
		return false, err
	}

	c.mu.Lock()
	if gen != c.generation || c.step != t.From || !c.guardsPass(t) {
		c.mu.Unlock()
		c.recorder.RecordTransition(string(event), from.String(), t.To.String(), false)
		return false, nil
	}
	c.step = t.To
	if t.From == StepSyncTest || t.To == StepSyncTest {
		c.clearVerificationLocked()
	}
	committed := c.eventLocked(TransitionPhaseCommitted, t, "")
	c.mu.Unlock()

	c.recorder.RecordTransition(string(event), from.String(), t.To.String(), true)
	c.log(ctx, committed.SessionID).Info("wizard %s %s -> %s", event, t.From, t.To)
	return true, fanoutHooks(ctx, c.hooks, committed, c.hookMode, c.logger)
}

// Verify runs the verification pipeline against the draft and stores the
// result on it. A failing stage is reported through the result, not the error.
func (c *Controller) Verify(ctx context.Context) (*integration.TestResult, error) {
	c.mu.Lock()
	if c.step != StepSyncTest {
		step := c.step
		c.mu.Unlock()
		return nil, integration.CloneError(integration.ErrWrongStep, "verification runs on the sync test step", nil, map[string]any{
			"step": step.String(),
		})
	}
	if c.verifying || c.completing {
		id := c.id
		c.mu.Unlock()
		return nil, integration.CloneError(integration.ErrPipelineRunning, "", nil, map[string]any{"session_id": id})
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.verifying = true
	c.cancelRun = cancel
	c.draft.TestResult = nil
	gen := c.generation
	work := c.draft.Clone()
	c.mu.Unlock()

	result, err := c.pipeline.Run(runCtx, work)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// session was reset while running; its draft and stage states are gone
		c.discarding = false
		if !c.verifying {
			c.pipeline.Reset()
		}
		if err == nil {
			err = runCtx.Err()
		}
		return nil, err
	}
	c.verifying = false
	c.cancelRun = nil
	if err != nil {
		return nil, err
	}
	c.draft.TestResult = work.TestResult.Clone()
	return result, nil
}

// Complete hands the draft to the system of record and resets the session.
// A commit failure keeps the session intact.
func (c *Controller) Complete(ctx context.Context) error {
	c.mu.Lock()
	if c.completing || !c.canCompleteLocked() {
		step := c.step
		c.mu.Unlock()
		return integration.CloneError(integration.ErrNotCompletable, "", nil, map[string]any{
			"step": step.String(),
		})
	}
	c.completing = true
	gen := c.generation
	msg := Completed{SessionID: c.id, Draft: c.draft.Clone(), CompletedAt: c.now()}
	c.mu.Unlock()

	err := integration.ValidateMessage(msg)
	if err == nil {
		err = runner.RunCommand(ctx, c.commitRun, c.committer, msg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.completing = false
	}
	if err != nil {
		c.recorder.RecordCompletion(false)
		c.log(ctx, msg.SessionID).Error("integration commit failed: %v", err)
		return integration.CloneError(integration.ErrCommitFailed, "", err, map[string]any{
			"session_id": msg.SessionID,
		})
	}
	c.recorder.RecordCompletion(true)
	c.log(ctx, msg.SessionID).Info("integration %q committed", msg.Draft.SystemName)
	if gen == c.generation {
		c.resetLocked()
	}
	return nil
}

// Reset discards the draft and returns to step 1 with a new session id. A
// running verification is canceled.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Cancel discards the session. It is Reset under the name callers use for an
// explicit close.
func (c *Controller) Cancel() {
	c.Reset()
}

func (c *Controller) resetLocked() {
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
	if c.verifying {
		c.discarding = true
	}
	if c.schemaFn != nil {
		if s := c.schemaFn(); s != nil {
			c.schema = s
		}
	}
	c.generation++
	c.id = uuid.NewString()
	c.step = StepSystemType
	c.draft = integration.NewDraft()
	c.engine = mapping.NewEngine(c.schema, c.draft, mapping.WithLogger(c.logger))
	c.verifying = false
	c.completing = false
	c.pipeline.Reset()
}

func (c *Controller) clearVerificationLocked() {
	c.draft.TestResult = nil
	c.pipeline.Reset()
}

func (c *Controller) mutate(step Step, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verifying || c.completing {
		return integration.CloneError(integration.ErrPipelineRunning, "", nil, map[string]any{"session_id": c.id})
	}
	if c.step != step {
		return integration.CloneError(
			integration.ErrWrongStep,
			fmt.Sprintf("operation belongs to the %s step", step.Title()),
			nil,
			map[string]any{"step": c.step.String(), "expected_step": step.String()},
		)
	}
	return fn()
}

func (c *Controller) canCompleteLocked() bool {
	return c.step == StepSyncTest &&
		!c.verifying &&
		c.draft.TestResult != nil &&
		c.draft.TestResult.Success
}

func (c *Controller) guardsPass(t Transition) bool {
	in := GuardInput{
		Step:            c.step,
		Draft:           c.draft.Clone(),
		Schema:          c.schema,
		PipelineRunning: c.verifying || c.completing,
	}
	for _, name := range t.Guards {
		guard, ok := c.guards.Lookup(name)
		if !ok || !guard(in) {
			return false
		}
	}
	return true
}

func (c *Controller) eventLocked(phase TransitionPhase, t Transition, reason string) TransitionEvent {
	return TransitionEvent{
		Phase:      phase,
		SessionID:  c.id,
		Event:      t.Event,
		From:       t.From,
		To:         t.To,
		Reason:     reason,
		OccurredAt: c.now(),
		Draft:      c.draft.Redacted(),
	}
}

func (c *Controller) log(ctx context.Context, sessionID string) integration.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return integration.WithLoggerFields(c.logger.WithContext(ctx), map[string]any{
		"session_id": sessionID,
	})
}

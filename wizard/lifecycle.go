package wizard

import (
	"context"
	"strings"
	"time"

	integration "github.com/goliatone/go-integration"
)

// TransitionPhase identifies lifecycle event emission points.
type TransitionPhase string

const (
	TransitionPhaseAttempted TransitionPhase = "attempted"
	TransitionPhaseCommitted TransitionPhase = "committed"
	TransitionPhaseRejected  TransitionPhase = "rejected"
)

// HookFailureMode controls lifecycle-hook error behavior.
type HookFailureMode string

const (
	HookFailureModeFailOpen   HookFailureMode = "fail_open"
	HookFailureModeFailClosed HookFailureMode = "fail_closed"
)

// TransitionEvent captures an auditable step transition. Draft is redacted.
type TransitionEvent struct {
	Phase      TransitionPhase
	SessionID  string
	Event      Event
	From       Step
	To         Step
	Reason     string
	OccurredAt time.Time
	Draft      *integration.Draft
}

// Hook receives transition lifecycle events.
type Hook interface {
	Notify(ctx context.Context, evt TransitionEvent) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, evt TransitionEvent) error

func (f HookFunc) Notify(ctx context.Context, evt TransitionEvent) error {
	return f(ctx, evt)
}

func normalizeHookFailureMode(mode HookFailureMode) HookFailureMode {
	switch HookFailureMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case HookFailureModeFailClosed:
		return HookFailureModeFailClosed
	default:
		return HookFailureModeFailOpen
	}
}

func fanoutHooks(
	ctx context.Context,
	hooks []Hook,
	evt TransitionEvent,
	mode HookFailureMode,
	logger integration.Logger,
) error {
	if len(hooks) == 0 {
		return nil
	}
	mode = normalizeHookFailureMode(mode)
	fields := map[string]any{
		"session_id": evt.SessionID,
		"event":      string(evt.Event),
		"from":       evt.From.String(),
		"to":         evt.To.String(),
		"phase":      string(evt.Phase),
	}
	logger = integration.WithLoggerFields(integration.NormalizeLogger(logger).WithContext(ctx), fields)

	for idx, hook := range hooks {
		if hook == nil {
			continue
		}
		hookEvt := evt
		hookEvt.Draft = evt.Draft.Clone()
		if err := hook.Notify(ctx, hookEvt); err != nil {
			if mode == HookFailureModeFailClosed {
				return integration.CloneError(integration.ErrHookFailed, "lifecycle hook failed", err, fields)
			}
			logger.Warn("lifecycle hook failed at index=%d: %v", idx, err)
		}
	}
	return nil
}

// Type routes transition events through a dispatcher.
func (TransitionEvent) Type() string { return "wizard::transition" }

func (e TransitionEvent) Validate() error {
	if strings.TrimSpace(e.SessionID) == "" {
		return integration.CloneError(integration.ErrValidation, "transition event requires a session id", nil, nil)
	}
	return nil
}

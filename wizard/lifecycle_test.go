package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/verify"
)

type hookCapture struct {
	events []TransitionEvent
	failOn TransitionPhase
}

func (h *hookCapture) Notify(_ context.Context, evt TransitionEvent) error {
	h.events = append(h.events, evt)
	if evt.Phase == h.failOn {
		return errors.New("hook refused")
	}
	return nil
}

func (h *hookCapture) phases() []TransitionPhase {
	out := make([]TransitionPhase, len(h.events))
	for i, evt := range h.events {
		out[i] = evt.Phase
	}
	return out
}

func TestHooksReceiveLifecyclePhases(t *testing.T) {
	hook := &hookCapture{}
	c := newController(t, verify.NewScriptedExecutor(), WithHooks(hook))
	ctx := context.Background()

	ok, err := c.Advance(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetSystemType(integration.SystemTypeMarketing))
	require.NoError(t, c.SetSystemName("HubSpot"))
	ok, err = c.Advance(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []TransitionPhase{
		TransitionPhaseRejected,
		TransitionPhaseAttempted,
		TransitionPhaseCommitted,
	}, hook.phases())
	last := hook.events[2]
	assert.Equal(t, EventAdvance, last.Event)
	assert.Equal(t, StepSystemType, last.From)
	assert.Equal(t, StepAuthentication, last.To)
	assert.Equal(t, c.ID(), last.SessionID)
	assert.Equal(t, "HubSpot", last.Draft.SystemName)
}

func TestHookEventsCarryRedactedDraft(t *testing.T) {
	hook := &hookCapture{}
	c := newController(t, verify.NewScriptedExecutor(), WithHooks(hook))
	ctx := context.Background()
	require.NoError(t, c.SetSystemType(integration.SystemTypeEMR))
	require.NoError(t, c.SetSystemName("Clinic EMR"))
	_, _ = c.Advance(ctx)
	require.NoError(t, c.SetCredentials(integration.APIKeyCredentials{APIKey: "sk-live-123456"}))
	_, _ = c.Advance(ctx)

	last := hook.events[len(hook.events)-1]
	creds, ok := last.Draft.Credentials.(integration.APIKeyCredentials)
	require.True(t, ok)
	assert.NotEqual(t, "sk-live-123456", creds.APIKey)
	assert.True(t, strings.HasSuffix(creds.APIKey, "3456"))
}

func TestFailOpenHookDoesNotBlock(t *testing.T) {
	hook := &hookCapture{failOn: TransitionPhaseAttempted}
	c := newController(t, verify.NewScriptedExecutor(), WithHooks(hook), WithHookFailureMode(HookFailureModeFailOpen))
	require.NoError(t, c.SetSystemType(integration.SystemTypeEMR))
	require.NoError(t, c.SetSystemName("Clinic EMR"))

	ok, err := c.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StepAuthentication, c.Step())
}

func TestFailClosedHookAbortsTransition(t *testing.T) {
	hook := &hookCapture{failOn: TransitionPhaseAttempted}
	c := newController(t, verify.NewScriptedExecutor(), WithHooks(hook), WithHookFailureMode(HookFailureModeFailClosed))
	require.NoError(t, c.SetSystemType(integration.SystemTypeEMR))
	require.NoError(t, c.SetSystemName("Clinic EMR"))

	ok, err := c.Advance(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, integration.HasCode(err, integration.ErrCodeHookFailed))
	assert.Equal(t, StepSystemType, c.Step())
}

func TestFailClosedCommittedHookReportsAfterTransition(t *testing.T) {
	hook := &hookCapture{failOn: TransitionPhaseCommitted}
	c := newController(t, verify.NewScriptedExecutor(), WithHooks(hook), WithHookFailureMode("FAIL_CLOSED"))
	require.NoError(t, c.SetSystemType(integration.SystemTypeEMR))
	require.NoError(t, c.SetSystemName("Clinic EMR"))

	ok, err := c.Advance(context.Background())
	assert.True(t, ok)
	assert.True(t, integration.HasCode(err, integration.ErrCodeHookFailed))
	assert.Equal(t, StepAuthentication, c.Step())
}

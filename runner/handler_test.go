package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	integration "github.com/goliatone/go-integration"
)

type countingFunc struct {
	mu        sync.Mutex
	calls     int
	failUntil int
}

func (c *countingFunc) fn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failUntil {
		return errors.New("not yet")
	}
	return nil
}

func TestHandler_NoError_NoRetries(t *testing.T) {
	h := NewHandler()
	cf := &countingFunc{}

	if err := h.Run(context.Background(), cf.fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.calls != 1 {
		t.Errorf("expected calls=1, got %d", cf.calls)
	}
	if h.Runs() != 1 || h.SuccessfulRuns() != 1 {
		t.Errorf("expected runs=1 successful=1, got %d/%d", h.Runs(), h.SuccessfulRuns())
	}
}

func TestHandler_SuccessOnSecondAttempt(t *testing.T) {
	var retries []error
	h := NewHandler(WithMaxRetries(3), WithErrorHandler(func(err error) { retries = append(retries, err) }))
	cf := &countingFunc{failUntil: 1}

	if err := h.Run(context.Background(), cf.fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.calls != 2 {
		t.Errorf("expected calls=2, got %d", cf.calls)
	}
	if len(retries) != 1 {
		t.Fatalf("expected one retry notification, got %d", len(retries))
	}
	if !integration.HasCode(retries[0], ErrCodeAttemptFailed) {
		t.Errorf("expected retry notification to carry the attempt code, got %v", retries[0])
	}
	if integration.HasCode(retries[0], integration.ErrCodeCommitFailed) {
		t.Errorf("a plain runner must not report commit failures, got %v", retries[0])
	}
}

func TestHandler_AttemptErrorOption(t *testing.T) {
	var retries []error
	h := NewHandler(
		WithMaxRetries(1),
		WithAttemptError(integration.ErrCommitFailed),
		WithErrorHandler(func(err error) { retries = append(retries, err) }),
	)
	cf := &countingFunc{failUntil: 1}

	if err := h.Run(context.Background(), cf.fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(retries) != 1 || !integration.HasCode(retries[0], integration.ErrCodeCommitFailed) {
		t.Fatalf("expected one commit-coded retry notification, got %v", retries)
	}
}

func TestHandler_AllAttemptsFail(t *testing.T) {
	h := NewHandler(WithMaxRetries(2))
	cf := &countingFunc{failUntil: 5}

	err := h.Run(context.Background(), cf.fn)
	if err == nil || err.Error() != "not yet" {
		t.Fatalf("expected last error, got %v", err)
	}
	if cf.calls != 3 {
		t.Errorf("expected calls=3 (1 initial + 2 retries), got %d", cf.calls)
	}
	if h.SuccessfulRuns() != 0 {
		t.Errorf("expected no successful runs, got %d", h.SuccessfulRuns())
	}
}

func TestHandler_TimeoutStopsRetries(t *testing.T) {
	h := NewHandler(
		WithTimeout(20*time.Millisecond),
		WithMaxRetries(10),
		WithRetryStrategy(ConstantDelayStrategy{Delay: time.Second}),
	)
	calls := 0
	err := h.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt before the deadline, got %d", calls)
	}
}

func TestHandler_ContextPassedToFunction(t *testing.T) {
	h := NewHandler(WithTimeout(time.Minute))
	err := h.Run(context.Background(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("expected deadline on context")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunCommand(t *testing.T) {
	var got string
	cmd := integration.CommandFunc[string](func(_ context.Context, msg string) error {
		got = msg
		return nil
	})
	if err := RunCommand[string](context.Background(), NewHandler(), cmd, "hello"); err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("expected message to reach command, got %q", got)
	}
}

func TestHandler_PanicBecomesRetriedError(t *testing.T) {
	h := NewHandler(WithMaxRetries(1))
	calls := 0
	err := h.Run(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			panic("committer exploded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected calls=2, got %d", calls)
	}
}

func TestHandler_PanicOnLastAttempt(t *testing.T) {
	h := NewHandler()
	err := h.Run(context.Background(), func(context.Context) error {
		panic("always")
	})
	if !integration.HasCode(err, integration.ErrCodePanic) {
		t.Fatalf("expected panic error, got %v", err)
	}
}

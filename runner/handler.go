package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-errors"

	integration "github.com/goliatone/go-integration"
)

const ErrCodeAttemptFailed = "RUNNER_ATTEMPT_FAILED"

// ErrAttemptFailed tags the per-attempt errors passed to the error handler.
var ErrAttemptFailed = errors.New("run attempt failed", errors.CategoryHandler).
	WithTextCode(ErrCodeAttemptFailed)

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type Option func(*Handler)

func WithTimeout(t time.Duration) Option {
	return func(r *Handler) {
		r.timeout = t
	}
}

func WithDeadline(d time.Time) Option {
	return func(r *Handler) {
		r.deadline = d
	}
}

func WithMaxRetries(max int) Option {
	return func(r *Handler) {
		if max >= 0 {
			r.maxRetries = max
		}
	}
}

func WithErrorHandler(h func(error)) Option {
	return func(r *Handler) {
		if h == nil {
			h = func(err error) {}
		}
		r.errorHandler = h
	}
}

func WithLogger(l Logger) Option {
	return func(r *Handler) {
		r.logger = l
	}
}

// WithAttemptError replaces ErrAttemptFailed as the sentinel cloned for each
// failed attempt, e.g. integration.ErrCommitFailed on the commit path.
func WithAttemptError(sentinel *errors.Error) Option {
	return func(r *Handler) {
		if sentinel != nil {
			r.attemptErr = sentinel
		}
	}
}

// WithRetryStrategy lets you define a custom retry/backoff approach.
func WithRetryStrategy(s RetryStrategy) Option {
	return func(r *Handler) {
		r.retryStrategy = s
	}
}

// Handler runs a function with a timeout and a bounded number of retries.
type Handler struct {
	mu sync.Mutex

	logger        Logger
	errorHandler  func(error)
	retryStrategy RetryStrategy
	attemptErr    *errors.Error

	runs           int
	successfulRuns int

	maxRetries int
	timeout    time.Duration
	deadline   time.Time

	recoverPanic func(string, *error, ...map[string]any)
}

// NewHandler constructs a Handler from options, applying defaults if unset.
func NewHandler(opts ...Option) *Handler {
	r := &Handler{
		errorHandler:  func(error) {},
		retryStrategy: NoDelayStrategy{},
		attemptErr:    ErrAttemptFailed,
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	r.recoverPanic = integration.MakePanicHandler(func(funcName string, err any, stack []byte, _ ...map[string]any) {
		r.logError("recovered from panic in %s: %v\n%s", funcName, err, stack)
	})
	return r
}

// Run calls fn until it succeeds or retries are exhausted and returns the
// last error. Retries stop early when ctx is done.
func (h *Handler) Run(ctx context.Context, fn func(context.Context) error) error {
	h.mu.Lock()
	maxRetries := h.maxRetries
	strategy := h.retryStrategy
	attemptErr := h.attemptErr
	h.mu.Unlock()

	ctx, cancel := h.contextWithSettings(ctx)
	defer cancel()

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = h.call(ctx, fn)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}

		if attempt < maxRetries {
			h.handleError(integration.CloneError(
				attemptErr,
				fmt.Sprintf("attempt %d of %d failed", attempt+1, maxRetries+1),
				err,
				map[string]any{"attempt": attempt + 1},
			))
			h.logInfo("retrying after failure: %v", err)

			if strategy != nil {
				if werr := wait(ctx, strategy.SleepDuration(attempt, err)); werr != nil {
					err = werr
					break
				}
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs++
	if err == nil {
		h.successfulRuns++
		return nil
	}
	h.logError("run failed after %d attempt(s): %v", maxRetries+1, err)
	return err
}

func (h *Handler) call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer h.recoverPanic("runner.Handler.Run", &err)
	return fn(ctx)
}

// Runs counts calls to Run; SuccessfulRuns those that returned nil.
func (h *Handler) Runs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs
}

func (h *Handler) SuccessfulRuns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.successfulRuns
}

func (h *Handler) handleError(err error) {
	h.errorHandler(err)
}

func (h *Handler) logInfo(format string, args ...any) {
	if h.logger != nil {
		h.logger.Info(format, args...)
	}
}

func (h *Handler) logError(format string, args ...any) {
	if h.logger != nil {
		h.logger.Error(format, args...)
	}
}

func (h *Handler) contextWithSettings(parent context.Context) (context.Context, context.CancelFunc) {
	switch {
	case h.timeout != 0 && !h.deadline.IsZero():
		ctx, cancelTimeout := context.WithTimeout(parent, h.timeout)
		ctxDeadline, cancelDeadline := context.WithDeadline(ctx, h.deadline)
		return ctxDeadline, func() {
			cancelDeadline()
			cancelTimeout()
		}
	case h.timeout != 0:
		return context.WithTimeout(parent, h.timeout)
	case !h.deadline.IsZero():
		return context.WithDeadline(parent, h.deadline)
	default:
		return parent, func() {}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// RunCommand executes a Commander through the handler.
func RunCommand[T any](ctx context.Context, h *Handler, c integration.Commander[T], msg T) error {
	return h.Run(ctx, func(ctx context.Context) error {
		return c.Execute(ctx, msg)
	})
}

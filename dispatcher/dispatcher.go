package dispatcher

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/router"
	"github.com/goliatone/go-integration/runner"
)

const (
	ErrCodeNoHandlers    = "DISPATCH_NO_HANDLERS"
	ErrCodeHandlerFailed = "DISPATCH_HANDLER_FAILED"
)

// Dispatcher routes messages to subscribers by message type. Typed commands
// subscribe to the exact type; observers may use wildcard patterns such as
// "wizard::#".
type Dispatcher struct {
	mux         *router.Mux
	exitOnErr   bool
	allowEmpty  bool
	defaultOpts []runner.Option
}

// Option defines the functional option signature.
type Option func(*Dispatcher)

// NewDispatcher applies the given options to a new instance of the dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{mux: router.NewMux()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// WithExitOnError stops delivery at the first failing subscriber.
func WithExitOnError() Option {
	return func(d *Dispatcher) {
		d.exitOnErr = true
	}
}

// WithAllowUnhandled makes Dispatch succeed when nobody subscribed.
func WithAllowUnhandled() Option {
	return func(d *Dispatcher) {
		d.allowEmpty = true
	}
}

// WithRunnerOptions sets runner options applied before per-subscription ones.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(d *Dispatcher) {
		d.defaultOpts = append(d.defaultOpts, opts...)
	}
}

// WithRouter replaces the topic mux, eg. to change the separator.
func WithRouter(m *router.Mux) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.mux = m
		}
	}
}

func (d *Dispatcher) runner(opts []runner.Option) *runner.Handler {
	all := append(append([]runner.Option(nil), d.defaultOpts...), opts...)
	return runner.NewHandler(all...)
}

type commandWrapper[T integration.Message] struct {
	runner *runner.Handler
	cmd    integration.Commander[T]
}

type observer struct {
	runner *runner.Handler
	fn     func(context.Context, integration.Message) error
}

// SubscribeCommand registers cmd for messages of type T.
func SubscribeCommand[T integration.Message](d *Dispatcher, cmd integration.Commander[T], runnerOpts ...runner.Option) Subscription {
	var msg T
	return d.mux.Add(msg.Type(), &commandWrapper[T]{
		runner: d.runner(runnerOpts),
		cmd:    cmd,
	})
}

func SubscribeCommandFunc[T integration.Message](d *Dispatcher, fn integration.CommandFunc[T], runnerOpts ...runner.Option) Subscription {
	return SubscribeCommand[T](d, fn, runnerOpts...)
}

// Observe registers fn for every message whose type matches pattern.
func Observe(d *Dispatcher, pattern string, fn func(context.Context, integration.Message) error, runnerOpts ...runner.Option) Subscription {
	return d.mux.Add(pattern, &observer{
		runner: d.runner(runnerOpts),
		fn:     fn,
	})
}

// Dispatch delivers msg to every matching subscriber and joins their errors.
func Dispatch[T integration.Message](ctx context.Context, d *Dispatcher, msg T) error {
	if err := integration.ValidateMessage(msg); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), errors.CategoryConflict, "context canceled or deadline exceeded").
			WithTextCode("CONTEXT_ERROR")
	}

	entries := d.mux.Get(msg.Type())
	if len(entries) == 0 {
		if d.allowEmpty {
			return nil
		}
		return errors.New(fmt.Sprintf("no handlers for message type %s", msg.Type()), errors.CategoryBadInput).
			WithTextCode(ErrCodeNoHandlers)
	}

	var errs error
	for _, entry := range entries {
		var err error
		switch h := entry.Handler.(type) {
		case *commandWrapper[T]:
			err = runner.RunCommand(ctx, h.runner, h.cmd, msg)
		case *observer:
			err = h.runner.Run(ctx, func(ctx context.Context) error {
				return h.fn(ctx, msg)
			})
		default:
			err = fmt.Errorf("handler registered on %s does not accept %T", entry.Pattern(), msg)
		}
		if err == nil {
			continue
		}

		wrapped := errors.Wrap(err, errors.CategoryHandler, fmt.Sprintf("handler failed for type %s", msg.Type())).
			WithTextCode(ErrCodeHandlerFailed).
			WithMetadata(map[string]any{"pattern": entry.Pattern()})
		if d.exitOnErr {
			return wrapped
		}
		errs = errors.Join(errs, wrapped)
	}
	return errs
}

// Committer adapts the dispatcher to a Commander so a wizard commit fans
// out to every subscriber of T.
func Committer[T integration.Message](d *Dispatcher) integration.CommandFunc[T] {
	return func(ctx context.Context, msg T) error {
		return Dispatch(ctx, d, msg)
	}
}

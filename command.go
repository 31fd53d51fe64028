package integration

import "context"

// CommandFunc is an adapter that lets you use a function as a Commander[T]
type CommandFunc[T any] func(ctx context.Context, msg T) error

// Execute calls the underlying function
func (f CommandFunc[T]) Execute(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// Commander is responsible for executing side effects, e.g. persisting a
// finished integration in the system of record.
type Commander[T any] interface {
	Execute(ctx context.Context, msg T) error
}

package catalog

import (
	"context"
	"sync/atomic"

	integration "github.com/goliatone/go-integration"
)

// Reloader keeps the most recent valid catalog loaded from a file. A failed
// reload keeps serving the previous catalog.
type Reloader struct {
	path    string
	current atomic.Pointer[Catalog]
	logger  integration.Logger
	loads   atomic.Int64
}

type ReloaderOption func(*Reloader)

func WithReloaderLogger(logger integration.Logger) ReloaderOption {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// NewReloader performs the initial load; an invalid file is an error here.
func NewReloader(path string, opts ...ReloaderOption) (*Reloader, error) {
	r := &Reloader{path: path}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = integration.WithLoggerFields(integration.NormalizeLogger(r.logger), map[string]any{
		"catalog_path": path,
	})
	if err := r.Reload(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// Catalog returns the active catalog.
func (r *Reloader) Catalog() *Catalog {
	return r.current.Load()
}

// Loads counts successful loads, including the initial one.
func (r *Reloader) Loads() int64 {
	return r.loads.Load()
}

func (r *Reloader) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next, err := LoadFile(r.path)
	if err != nil {
		r.logger.Error("catalog reload failed, keeping previous catalog: %v", err)
		return err
	}
	r.current.Store(next)
	r.loads.Add(1)
	r.logger.Info("catalog loaded: %d fields, %d templates, %d connectors",
		len(next.fields), len(next.templates), len(next.connectors))
	return nil
}

package worker

import (
	"context"

	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithFailureHandler registers fn to run after a commit could not be applied.
func WithFailureHandler(fn func(ctx context.Context, c model.Commit, err error)) Option {
	return func(w *Worker) {
		w.onFailure = fn
	}
}

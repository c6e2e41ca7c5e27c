// Package report defines the Reporter interface the engine publishes each
// CollectionReport to, along with log, console and webhook reporters.
package report

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// Reporter receives one report per completed tick. Publish is called from
// the engine's goroutine only, and the report must not be retained after
// Publish returns.
type Reporter interface {
	Publish(ctx context.Context, r *models.CollectionReport) error
}

// Func adapts a function to the Reporter interface.
type Func func(ctx context.Context, r *models.CollectionReport) error

// Publish calls f.
func (f Func) Publish(ctx context.Context, r *models.CollectionReport) error {
	return f(ctx, r)
}

// Multi publishes to every reporter in order. A failing or panicking
// reporter does not prevent the remaining ones from running; their errors
// are combined.
type Multi []Reporter

// Publish fans the report out.
func (m Multi) Publish(ctx context.Context, r *models.CollectionReport) error {
	var errs error
	for _, rep := range m {
		errs = multierr.Append(errs, publishSafe(ctx, rep, r))
	}
	return errs
}

func publishSafe(ctx context.Context, rep Reporter, r *models.CollectionReport) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reporter %T panicked: %v", rep, p)
		}
	}()
	return rep.Publish(ctx, r)
}

// Package saga orchestrates the multi-service write flows of the gateway:
// booking a hotel, cancelling a reservation, and enriching reservation
// records for read endpoints. Each flow is an ordered list of steps; a step
// that needs undo work on failure declares its own compensating action,
// which runs only when that step itself fails.
package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/triptech/booking-gateway/internal/metrics"
)

// Step is one unit of a saga. Compensate, when set, runs if Run fails; it
// is owned by the step whose failure makes the undo necessary, not by the
// steps that came before.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// execute runs steps in order and stops at the first failure. The failing
// step's compensation, if any, runs before the error is returned.
// Compensation errors are logged but never mask the original failure.
func execute(ctx context.Context, name string, logger *slog.Logger, steps []Step) error {
	for _, step := range steps {
		err := step.Run(ctx)
		if err == nil {
			continue
		}

		logger.Warn("saga step failed", "saga", name, "step", step.Name, "error", err)

		if step.Compensate != nil {
			metrics.SagaCompensations.WithLabelValues(name, step.Name).Inc()
			// Detached context: compensation must run even when the
			// original request deadline has been consumed by the failure.
			if cerr := step.Compensate(context.WithoutCancel(ctx)); cerr != nil {
				logger.Error("saga compensation failed",
					"saga", name, "step", step.Name, "error", cerr)
			} else {
				logger.Info("saga compensation applied", "saga", name, "step", step.Name)
			}
			metrics.SagaTotal.WithLabelValues(name, "compensated").Inc()
		} else {
			metrics.SagaTotal.WithLabelValues(name, "aborted").Inc()
		}
		return fmt.Errorf("%s: %w", step.Name, err)
	}

	metrics.SagaTotal.WithLabelValues(name, "completed").Inc()
	return nil
}

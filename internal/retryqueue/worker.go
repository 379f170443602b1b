package retryqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/triptech/booking-gateway/internal/metrics"
)

// Degrader is the single downstream operation the worker replays. Satisfied
// by the loyalty facade.
type Degrader interface {
	Degrade(ctx context.Context, username string) error
}

// Worker drains the retry queue in a single background loop. Each popped
// username is replayed against the loyalty service; a failed replay puts the
// username back on the tail so nothing is lost while the dependency is down.
type Worker struct {
	queue    *Queue
	loyalty  Degrader
	idleWait time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewWorker builds a worker over queue. idleWait is how long the loop sleeps
// after finding the queue empty.
func NewWorker(queue *Queue, loyalty Degrader, idleWait time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		loyalty:  loyalty,
		idleWait: idleWait,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled. An in-flight degrade is
// allowed to finish; the entry is requeued if it fails, so cancellation
// never drops work. Run returns after closing Done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("retry worker started", "channel", w.queue.Channel(), "idle_wait", w.idleWait)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retry worker stopping")
			return
		default:
		}

		username, ok, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("retry worker stopping")
				return
			}
			w.logger.Error("retry worker pop failed", "error", err)
			w.idle(ctx)
			continue
		}
		if !ok {
			w.updateDepth(ctx)
			w.idle(ctx)
			continue
		}

		if err := w.loyalty.Degrade(ctx, username); err != nil {
			w.logger.Warn("deferred loyalty degrade failed, requeueing",
				"username", username, "error", err)
			metrics.RetryQueueOps.WithLabelValues("requeue").Inc()
			// Requeue must survive shutdown: the pop already happened, so a
			// cancelled context here would lose the entry.
			if pushErr := w.queue.Push(context.WithoutCancel(ctx), username); pushErr != nil {
				// Redis itself is down; the entry is lost. Log loudly.
				w.logger.Error("requeue failed, dropping entry",
					"username", username, "error", pushErr)
			}
			w.idle(ctx)
			continue
		}

		metrics.RetryQueueOps.WithLabelValues("drain").Inc()
		w.logger.Info("deferred loyalty degrade applied", "username", username)
		w.updateDepth(ctx)
	}
}

// Done is closed once Run has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) idle(ctx context.Context) {
	t := time.NewTimer(w.idleWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) updateDepth(ctx context.Context) {
	if n, err := w.queue.Len(ctx); err == nil {
		metrics.RetryQueueDepth.Set(float64(n))
	}
}

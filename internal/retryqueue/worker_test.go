package retryqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// scriptedDegrader fails a username a fixed number of times before
// succeeding, recording every attempt.
type scriptedDegrader struct {
	mu        sync.Mutex
	failures  map[string]int
	attempts  []string
	succeeded chan string
}

func newScriptedDegrader(failures map[string]int) *scriptedDegrader {
	return &scriptedDegrader{
		failures:  failures,
		succeeded: make(chan string, 16),
	}
}

func (d *scriptedDegrader) Degrade(_ context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, username)
	if d.failures[username] > 0 {
		d.failures[username]--
		return errors.New("loyalty unavailable")
	}
	d.succeeded <- username
	return nil
}

func (d *scriptedDegrader) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attempts)
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("drained %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q to drain", want)
	}
}

func TestWorker_DrainsInOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, u := range []string{"alice", "bob"} {
		if err := q.Push(ctx, u); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	d := newScriptedDegrader(nil)
	w := NewWorker(q, d, 10*time.Millisecond, slog.Default())
	go w.Run(ctx)

	waitFor(t, d.succeeded, "alice")
	waitFor(t, d.succeeded, "bob")

	cancel()
	<-w.Done()

	if n, _ := q.Len(context.Background()); n != 0 {
		t.Errorf("queue depth after drain = %d, want 0", n)
	}
}

func TestWorker_RequeuesOnFailure(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Push(ctx, "alice"); err != nil {
		t.Fatalf("push: %v", err)
	}

	// Fail twice, then succeed. The entry must survive each failure.
	d := newScriptedDegrader(map[string]int{"alice": 2})
	w := NewWorker(q, d, 5*time.Millisecond, slog.Default())
	go w.Run(ctx)

	waitFor(t, d.succeeded, "alice")

	cancel()
	<-w.Done()

	if got := d.attemptCount(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if n, _ := q.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0", n)
	}
}

func TestWorker_StopsOnCancel(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	d := newScriptedDegrader(nil)
	w := NewWorker(q, d, 5*time.Millisecond, slog.Default())
	go w.Run(ctx)

	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorker_IdlesOnEmptyQueue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newScriptedDegrader(nil)
	w := NewWorker(q, d, 20*time.Millisecond, slog.Default())
	go w.Run(ctx)

	// Nothing queued yet; the worker must not spin attempts.
	time.Sleep(50 * time.Millisecond)
	if got := d.attemptCount(); got != 0 {
		t.Errorf("attempts on empty queue = %d, want 0", got)
	}

	// A late arrival is still picked up.
	if err := q.Push(ctx, "carol"); err != nil {
		t.Fatalf("push: %v", err)
	}
	waitFor(t, d.succeeded, "carol")

	cancel()
	<-w.Done()
}

// Package retryqueue provides the durable FIFO queue for deferred loyalty
// degrades and the background worker that drains it. The queue is a redis
// list: entries are bare usernames, pushed to the tail and popped from the
// head, so retries replay in arrival order. Duplicates are allowed; the
// degrade operation downstream is idempotent enough that replaying a
// username twice is harmless compared to losing one.
package retryqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/triptech/booking-gateway/internal/metrics"
)

// Queue is a durable FIFO of usernames awaiting a loyalty degrade.
type Queue struct {
	rdb     redis.UniversalClient
	channel string
}

// New returns a queue backed by the given redis client, keyed by channel.
func New(rdb redis.UniversalClient, channel string) *Queue {
	return &Queue{rdb: rdb, channel: channel}
}

// Channel returns the redis list key backing the queue.
func (q *Queue) Channel() string { return q.channel }

// Push appends a username to the tail of the queue.
func (q *Queue) Push(ctx context.Context, username string) error {
	if err := q.rdb.RPush(ctx, q.channel, username).Err(); err != nil {
		return fmt.Errorf("pushing to %s: %w", q.channel, err)
	}
	metrics.RetryQueueOps.WithLabelValues("enqueue").Inc()
	return nil
}

// Pop removes and returns the username at the head of the queue. An empty
// queue returns ("", false, nil).
func (q *Queue) Pop(ctx context.Context) (string, bool, error) {
	username, err := q.rdb.LPop(ctx, q.channel).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("popping from %s: %w", q.channel, err)
	}
	return username, true, nil
}

// Len returns the current queue depth.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.channel).Result()
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", q.channel, err)
	}
	return n, nil
}

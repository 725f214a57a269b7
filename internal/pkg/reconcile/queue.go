package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vastrahub/vastrahub/internal/pkg/cache"
)

const (
	// RetryQueueKey holds dedup keys of deliveries that failed transiently.
	RetryQueueKey = "webhook_reconcile_queue"
	// AlertQueueKey holds operator alerts for fatal inconsistencies. Entries
	// are never consumed automatically; an operator drains them.
	AlertQueueKey = "operator_alerts"
)

// Queue is the Redis-backed reconciliation queue: transient webhook failures
// are parked here for the drain worker, fatal inconsistencies for a human.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a reconciliation queue on the shared cache client.
func NewQueue() *Queue {
	return &Queue{client: cache.GetClient()}
}

// NewQueueWithClient creates a reconciliation queue on a specific client.
func NewQueueWithClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// EnqueueRetry parks a delivery for the reconciliation drain.
func (q *Queue) EnqueueRetry(ctx context.Context, dedupKey string) error {
	return q.client.LPush(ctx, RetryQueueKey, dedupKey).Err()
}

// EnqueueAlert records a fatal inconsistency for operator review.
func (q *Queue) EnqueueAlert(ctx context.Context, message string) error {
	entry := fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), message)
	return q.client.LPush(ctx, AlertQueueKey, entry).Err()
}

// DequeueRetry pops the oldest parked delivery. Returns "" when the queue is
// empty.
func (q *Queue) DequeueRetry(ctx context.Context) (string, error) {
	val, err := q.client.RPop(ctx, RetryQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// PendingRetries returns the number of parked deliveries.
func (q *Queue) PendingRetries(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, RetryQueueKey).Result()
}

// PendingAlerts returns the number of unreviewed operator alerts.
func (q *Queue) PendingAlerts(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, AlertQueueKey).Result()
}

package reconcile

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vastrahub/vastrahub/app/repository"
	"github.com/vastrahub/vastrahub/internal/pkg/payment"
)

// RetryQueue is the slice of the reconciliation queue the drain worker
// consumes: pop parked deliveries, park them again on a fresh failure.
type RetryQueue interface {
	DequeueRetry(ctx context.Context) (string, error)
	EnqueueRetry(ctx context.Context, dedupKey string) error
}

// Drainer re-runs parked webhook deliveries through the coordinator. It is
// driven by the background manager on a fixed interval.
type Drainer struct {
	queue       RetryQueue
	webhooks    repository.WebhookRepository
	coordinator *payment.Coordinator
}

// NewDrainer creates a reconciliation drainer.
func NewDrainer(queue RetryQueue, webhooks repository.WebhookRepository, coordinator *payment.Coordinator) *Drainer {
	return &Drainer{queue: queue, webhooks: webhooks, coordinator: coordinator}
}

// DrainOnce pops up to maxBatch parked deliveries and reprocesses them.
// Deliveries that fail transiently again are re-parked. Returns the number of
// deliveries handled.
func (d *Drainer) DrainOnce(ctx context.Context, maxBatch int) int {
	handled := 0
	for handled < maxBatch {
		dedupKey, err := d.queue.DequeueRetry(ctx)
		if err != nil {
			log.Errorf("[Reconcile] Dequeue failed: %v", err)
			return handled
		}
		if dedupKey == "" {
			return handled
		}
		handled++

		stored, err := d.webhooks.GetByDedupKey(dedupKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warnf("[Reconcile] No record for parked delivery %s, dropping", dedupKey)
				continue
			}
			// Store still unavailable; park it again and stop this pass.
			if reqErr := d.queue.EnqueueRetry(ctx, dedupKey); reqErr != nil {
				log.Errorf("[Reconcile] Failed to re-park %s: %v", dedupKey, reqErr)
			}
			return handled
		}
		if stored.Processed {
			continue
		}

		result := d.coordinator.ProcessRecorded(ctx, stored)
		if result.Retryable {
			log.Warnf("[Reconcile] Delivery %s still failing: %s", dedupKey, result.Message)
			continue // coordinator already re-parked it
		}
		log.Infof("[Reconcile] Reprocessed %s: %s", dedupKey, result.Message)
	}
	return handled
}

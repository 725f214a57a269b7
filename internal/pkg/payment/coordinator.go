package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastrahub/vastrahub/app/models"
	"github.com/vastrahub/vastrahub/app/repository"
	"github.com/vastrahub/vastrahub/internal/pkg/checkout"
	"github.com/vastrahub/vastrahub/internal/pkg/stock"
)

// Result is the internal outcome of processing one delivery. It is decoupled
// from the HTTP acknowledgement: the provider receives 200 for every
// structurally sound request, and Retryable only steers our own
// reconciliation, never the provider's retries.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ReconcileQueue receives deliveries that failed on transient store errors
// plus fatal inconsistencies that need an operator.
type ReconcileQueue interface {
	EnqueueRetry(ctx context.Context, dedupKey string) error
	EnqueueAlert(ctx context.Context, message string) error
}

// Coordinator orchestrates webhook processing: record, verify, guard, claim,
// then drive the order state machine and the stock ledger. Any number of
// coordinator instances may process the same delivery concurrently; the claim
// and the order CAS make the outcome order-independent.
type Coordinator struct {
	webhooks  repository.WebhookRepository
	orders    repository.OrderRepository
	sessions  *checkout.Manager
	guard     AmountGuard
	saltKey   string
	saltIndex string
	queue     ReconcileQueue
	workerID  string
}

// NewCoordinator creates a webhook processing coordinator.
func NewCoordinator(
	webhooks repository.WebhookRepository,
	orders repository.OrderRepository,
	sessions *checkout.Manager,
	guard AmountGuard,
	saltKey, saltIndex string,
	queue ReconcileQueue,
) *Coordinator {
	return &Coordinator{
		webhooks:  webhooks,
		orders:    orders,
		sessions:  sessions,
		guard:     guard,
		saltKey:   saltKey,
		saltIndex: saltIndex,
		queue:     queue,
		workerID:  "coordinator-" + uuid.New().String()[:8],
	}
}

// Process handles one inbound delivery end to end. The raw body is persisted
// before any business logic runs, regardless of signature validity, so every
// delivery attempt is replayable.
func (c *Coordinator) Process(ctx context.Context, provider string, body []byte, signatureHeader string) Result {
	sigValid := VerifyWebhookSignature(body, signatureHeader, c.saltKey, c.saltIndex)

	payload, parseErr := ParseWebhookPayload(body)
	if parseErr != nil {
		// Still record the attempt; dedup on a body hash since there is no
		// usable transaction id.
		sum := sha256.Sum256(body)
		record := &models.PaymentWebhook{
			Provider:       provider,
			DedupKey:       "malformed:" + hex.EncodeToString(sum[:16]),
			TransactionID:  "",
			State:          "",
			RawPayload:     string(body),
			SignatureValid: sigValid,
			Result:         models.WebhookResultRejected,
		}
		if _, _, err := c.webhooks.RecordIfNotExists(record); err != nil {
			log.Errorf("[Webhook] Failed to record malformed delivery: %v", err)
		}
		return Result{Success: false, Message: "malformed payload", Retryable: false}
	}

	dedupKey := models.WebhookDedupKey(payload.TransactionID, payload.State)
	record := &models.PaymentWebhook{
		Provider:       provider,
		DedupKey:       dedupKey,
		TransactionID:  payload.TransactionID,
		State:          payload.State,
		RawPayload:     string(body),
		SignatureValid: sigValid,
	}
	created, stored, err := c.webhooks.RecordIfNotExists(record)
	if err != nil {
		log.Errorf("[Webhook] Failed to persist delivery %s: %v", dedupKey, err)
		return Result{Success: false, Message: "store unavailable", Retryable: true}
	}
	if !created && stored.Processed {
		// Steady-state duplicate: hand back the cached outcome, no side effects.
		return Result{Success: true, Message: "duplicate delivery, already processed", Retryable: false}
	}
	if sigValid && !stored.SignatureValid {
		if err := c.webhooks.MarkSignatureValid(dedupKey); err != nil {
			return c.retryAfter(ctx, dedupKey, err)
		}
	}

	if !sigValid {
		if err := c.webhooks.MarkRejected(dedupKey); err != nil {
			log.Errorf("[Webhook] Failed to mark %s rejected: %v", dedupKey, err)
		}
		log.Warnf("[Webhook] Invalid signature for transaction %s", payload.TransactionID)
		return Result{Success: false, Message: "invalid signature", Retryable: false}
	}

	return c.process(ctx, dedupKey, payload)
}

// ProcessRecorded re-runs a previously recorded, signature-valid delivery.
// Used by the reconciliation drain for webhooks that failed transiently.
func (c *Coordinator) ProcessRecorded(ctx context.Context, stored *models.PaymentWebhook) Result {
	if !stored.SignatureValid {
		return Result{Success: false, Message: "invalid signature", Retryable: false}
	}
	payload, err := ParseWebhookPayload([]byte(stored.RawPayload))
	if err != nil {
		return Result{Success: false, Message: "malformed payload", Retryable: false}
	}
	return c.process(ctx, stored.DedupKey, payload)
}

func (c *Coordinator) process(ctx context.Context, dedupKey string, payload *WebhookPayload) Result {
	order, err := c.orders.GetByProviderTransactionID(payload.TransactionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.retryAfter(ctx, dedupKey, err)
		}
		order = nil
	}

	if err := c.guard.Check(payload.AmountPaise, order); err != nil {
		// Recorded but never processed: protects the draft order from a
		// tampered payload replayed with a stale valid signature.
		log.Warnf("[Webhook] Fraud guard rejected transaction %s: %v", payload.TransactionID, err)
		if setErr := c.webhooks.MarkRejected(dedupKey); setErr != nil {
			log.Errorf("[Webhook] Failed to mark %s rejected: %v", dedupKey, setErr)
		}
		return Result{Success: false, Message: "amount rejected", Retryable: false}
	}

	won, err := c.webhooks.Claim(dedupKey, c.workerID)
	if err != nil {
		return c.retryAfter(ctx, dedupKey, err)
	}
	if !won {
		return Result{Success: true, Message: "duplicate delivery, already claimed", Retryable: false}
	}

	if order == nil {
		if err := c.webhooks.SetResult(dedupKey, models.WebhookResultOrderNotFound); err != nil {
			log.Errorf("[Webhook] Failed to store result for %s: %v", dedupKey, err)
		}
		log.Warnf("[Webhook] No order for transaction %s", payload.TransactionID)
		return Result{Success: true, Message: "no order for transaction", Retryable: false}
	}

	switch payload.State {
	case StateCompleted:
		return c.confirm(ctx, dedupKey, order)
	case StateFailed:
		return c.cancel(ctx, dedupKey, order)
	default:
		// PENDING and other intermediate states carry no transition.
		if err := c.webhooks.SetResult(dedupKey, models.WebhookResultNoop); err != nil {
			log.Errorf("[Webhook] Failed to store result for %s: %v", dedupKey, err)
		}
		return Result{Success: true, Message: "state carries no transition", Retryable: false}
	}
}

func (c *Coordinator) confirm(ctx context.Context, dedupKey string, order *models.Order) Result {
	won, err := c.orders.ConfirmIfDraft(order.OrderID, time.Now())
	if err != nil {
		return c.retryAfter(ctx, dedupKey, err)
	}
	if !won {
		return c.terminalNoop(ctx, dedupKey, order)
	}

	if err := c.sessions.Confirm(order.OrderID); err != nil {
		return c.commitFailure(ctx, dedupKey, order, err)
	}

	if err := c.webhooks.SetResult(dedupKey, models.WebhookResultSuccess); err != nil {
		log.Errorf("[Webhook] Failed to store result for %s: %v", dedupKey, err)
	}
	log.Infof("[Webhook] Order %s confirmed for transaction %s", order.OrderID, order.ProviderTransactionID)
	return Result{Success: true, Message: "order confirmed", Retryable: false}
}

func (c *Coordinator) cancel(ctx context.Context, dedupKey string, order *models.Order) Result {
	won, err := c.orders.CancelIfDraft(order.OrderID)
	if err != nil {
		return c.retryAfter(ctx, dedupKey, err)
	}
	if !won {
		return c.terminalNoop(ctx, dedupKey, order)
	}

	if err := c.sessions.ReleaseByOrder(order.OrderID); err != nil {
		return c.retryAfter(ctx, dedupKey, err)
	}

	if err := c.webhooks.SetResult(dedupKey, models.WebhookResultSuccess); err != nil {
		log.Errorf("[Webhook] Failed to store result for %s: %v", dedupKey, err)
	}
	log.Infof("[Webhook] Order %s cancelled for transaction %s", order.OrderID, order.ProviderTransactionID)
	return Result{Success: true, Message: "order cancelled", Retryable: false}
}

// terminalNoop handles the contradictory-webhook case: the order already
// reached a terminal state, so this delivery is recorded but functionally
// inert. Whichever webhook was processed first determined the outcome. As a
// side benefit a stranded session from an earlier partial failure is given
// another resolution attempt here.
func (c *Coordinator) terminalNoop(ctx context.Context, dedupKey string, order *models.Order) Result {
	current, err := c.orders.GetByOrderID(order.OrderID)
	if err == nil {
		switch current.Status {
		case models.OrderStatusConfirmed:
			if healErr := c.sessions.Confirm(order.OrderID); healErr != nil && !errors.Is(healErr, stock.ErrReservationInconsistent) {
				log.Errorf("[Webhook] Session heal for confirmed order %s: %v", order.OrderID, healErr)
			}
		case models.OrderStatusCancelled:
			if healErr := c.sessions.ReleaseByOrder(order.OrderID); healErr != nil {
				log.Errorf("[Webhook] Session heal for cancelled order %s: %v", order.OrderID, healErr)
			}
		}
	}

	if err := c.webhooks.SetResult(dedupKey, models.WebhookResultNoop); err != nil {
		log.Errorf("[Webhook] Failed to store result for %s: %v", dedupKey, err)
	}
	return Result{Success: true, Message: "order already in terminal state", Retryable: false}
}

// commitFailure distinguishes the fatal reservation inconsistency (operator
// queue, never retried) from transient store errors (requeued).
func (c *Coordinator) commitFailure(ctx context.Context, dedupKey string, order *models.Order, err error) Result {
	if errors.Is(err, stock.ErrReservationInconsistent) {
		log.Errorf("[Webhook] FATAL reservation inconsistency for order %s: %v", order.OrderID, err)
		if c.queue != nil {
			if alertErr := c.queue.EnqueueAlert(ctx, "order "+order.OrderID+": "+err.Error()); alertErr != nil {
				log.Errorf("[Webhook] Failed to enqueue operator alert: %v", alertErr)
			}
		}
		if setErr := c.webhooks.SetResult(dedupKey, models.WebhookResultError); setErr != nil {
			log.Errorf("[Webhook] Failed to store result for %s: %v", dedupKey, setErr)
		}
		return Result{Success: true, Message: "reservation inconsistent, operator notified", Retryable: false}
	}
	return c.retryAfter(ctx, dedupKey, err)
}

// retryAfter acknowledges the provider but requeues the delivery internally.
// This worker's claim is reverted so the reconciliation drain can claim the
// record again; a record another worker resolved meanwhile stays untouched.
func (c *Coordinator) retryAfter(ctx context.Context, dedupKey string, cause error) Result {
	log.Errorf("[Webhook] Transient failure for %s: %v", dedupKey, cause)
	if err := c.webhooks.ReleaseClaim(dedupKey, c.workerID); err != nil {
		log.Errorf("[Webhook] Failed to reset %s for retry: %v", dedupKey, err)
	}
	if c.queue != nil {
		if err := c.queue.EnqueueRetry(ctx, dedupKey); err != nil {
			log.Errorf("[Webhook] Failed to enqueue retry for %s: %v", dedupKey, err)
		}
	}
	return Result{Success: false, Message: "transient failure, queued for reconciliation", Retryable: true}
}

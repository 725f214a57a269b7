package payment

import "errors"

var (
	// ErrSignatureInvalid means the X-Verify header did not match the payload.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	// ErrAmountMismatch means the reported amount failed the fraud guard:
	// non-positive, above the sanity ceiling, or different from the draft
	// order's total.
	ErrAmountMismatch = errors.New("webhook amount mismatch")
	// ErrOrderNotFound means no order exists for the reported transaction id.
	ErrOrderNotFound = errors.New("order not found for transaction")
	// ErrStoreUnavailable marks transient persistence failures; the delivery
	// is acknowledged to the provider and requeued internally.
	ErrStoreUnavailable = errors.New("store unavailable")
)

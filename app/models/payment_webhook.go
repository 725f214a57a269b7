package models

import "time"

// Terminal result codes stored on a processed (or rejected) webhook record.
const (
	WebhookResultSuccess       = "success"
	WebhookResultRejected      = "rejected"
	WebhookResultNoop          = "noop"
	WebhookResultOrderNotFound = "order_not_found"
	WebhookResultError         = "error"
)

// PaymentWebhook stores every provider delivery attempt with deduplication
// metadata for idempotent processing. Rows are append-only: signature-invalid
// and fraud-rejected deliveries are kept with processed=false for forensic
// replay, and nothing is ever deleted.
//
// DedupKey is transactionID + ":" + state, so a COMPLETED and a later FAILED
// delivery for the same transaction are distinct records while repeats of the
// same outcome collapse onto one row via the unique index.
type PaymentWebhook struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Provider       string    `gorm:"type:varchar(20);not null;index" json:"provider"`
	DedupKey       string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"dedup_key"`
	TransactionID  string    `gorm:"type:varchar(100);not null;index" json:"transaction_id"`
	State          string    `gorm:"type:varchar(30);not null" json:"state"`
	RawPayload     string    `gorm:"type:longtext;not null" json:"raw_payload"`
	SignatureValid bool      `gorm:"default:false;index" json:"signature_valid"`
	ClaimedBy      string    `gorm:"type:varchar(64)" json:"claimed_by"`
	Processed      bool      `gorm:"default:false;index" json:"processed"`
	Result         string    `gorm:"type:varchar(40)" json:"result"`
	ReceivedAt     time.Time `gorm:"autoCreateTime;index" json:"received_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WebhookDedupKey derives the deduplication key for one (transaction, state)
// outcome.
func WebhookDedupKey(transactionID, state string) string {
	return transactionID + ":" + state
}

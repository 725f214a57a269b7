package payment

import (
	"encoding/json"
	"errors"
	"strings"
)

// Transaction states the provider reports.
const (
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StatePending   = "PENDING"
)

// WebhookPayload is the parsed body of a provider webhook delivery. Amounts
// arrive as integer paise.
type WebhookPayload struct {
	TransactionID string `json:"transactionId"`
	State         string `json:"state"`
	AmountPaise   int64  `json:"amount"`
	Currency      string `json:"currency"`
	Timestamp     int64  `json:"timestamp"`
}

// ParseWebhookPayload decodes and minimally validates a webhook body.
func ParseWebhookPayload(raw []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	p.TransactionID = strings.TrimSpace(p.TransactionID)
	p.State = strings.ToUpper(strings.TrimSpace(p.State))
	if p.TransactionID == "" {
		return nil, errors.New("webhook payload missing transactionId")
	}
	if p.State == "" {
		return nil, errors.New("webhook payload missing state")
	}
	return &p, nil
}

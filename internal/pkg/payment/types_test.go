package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookPayload(t *testing.T) {
	raw := []byte(`{"transactionId":"TXN123","state":"completed","amount":50000,"currency":"INR","timestamp":1735689600}`)
	p, err := ParseWebhookPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "TXN123", p.TransactionID)
	assert.Equal(t, StateCompleted, p.State)
	assert.Equal(t, int64(50000), p.AmountPaise)
	assert.Equal(t, "INR", p.Currency)
}

func TestParseWebhookPayloadErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `this is not json`},
		{"empty body", ``},
		{"missing transaction id", `{"state":"COMPLETED","amount":100}`},
		{"blank transaction id", `{"transactionId":"   ","state":"COMPLETED"}`},
		{"missing state", `{"transactionId":"TXN1","amount":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebhookPayload([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseWebhookPayloadNormalizesState(t *testing.T) {
	p, err := ParseWebhookPayload([]byte(`{"transactionId":"TXN1","state":" failed "}`))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, p.State)
}

package payment

import (
	"fmt"

	"github.com/vastrahub/vastrahub/app/models"
)

// AmountGuard validates reported amounts before any state mutation. It
// protects against a tampered payload replayed with a stale valid signature
// for a different amount.
type AmountGuard struct {
	// CeilingPaise is the sanity ceiling; zero disables the ceiling check.
	CeilingPaise int64
}

// Check returns ErrAmountMismatch (wrapped with detail) when the amount is
// non-positive, above the ceiling, or differs from the draft order's total.
// order may be nil when no order was resolved yet.
func (g AmountGuard) Check(amountPaise int64, order *models.Order) error {
	if amountPaise <= 0 {
		return fmt.Errorf("non-positive amount %d: %w", amountPaise, ErrAmountMismatch)
	}
	if g.CeilingPaise > 0 && amountPaise > g.CeilingPaise {
		return fmt.Errorf("amount %d exceeds ceiling %d: %w", amountPaise, g.CeilingPaise, ErrAmountMismatch)
	}
	if order != nil && order.Status == models.OrderStatusDraft && amountPaise != order.TotalAmountPaise {
		return fmt.Errorf("amount %d does not match order total %d: %w",
			amountPaise, order.TotalAmountPaise, ErrAmountMismatch)
	}
	return nil
}

package models

import "time"

const (
	CheckoutStatusPending         = "pending"
	CheckoutStatusAwaitingPayment = "awaiting_payment"
	CheckoutStatusCompleted       = "completed"
	CheckoutStatusExpired         = "expired"
)

// CheckoutSession groups the reservations of one shopper attempt and carries
// the shared expiry deadline the sweeper acts on.
type CheckoutSession struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"session_id"`
	OrderID       string    `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending';index:idx_checkout_sessions_status_expiry,priority:1" json:"status"`
	StockReserved bool      `gorm:"default:false" json:"stock_reserved"`
	ExpiresAt     time.Time `gorm:"not null;index:idx_checkout_sessions_status_expiry,priority:2" json:"expires_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsOpen reports whether the session may still receive a payment outcome.
func (cs *CheckoutSession) IsOpen() bool {
	return cs.Status == CheckoutStatusPending || cs.Status == CheckoutStatusAwaitingPayment
}

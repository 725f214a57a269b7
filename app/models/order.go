package models

import "time"

const (
	OrderStatusDraft     = "DRAFT"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"

	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

// Order is the purchasable transaction. It is created in DRAFT when checkout
// begins and only ever leaves DRAFT through a guarded conditional update, so
// at most one webhook can move it to a terminal state. Orders are never
// physically deleted.
type Order struct {
	ID                    uint        `gorm:"primaryKey" json:"id"`
	OrderID               string      `gorm:"type:varchar(36);not null;uniqueIndex" json:"order_id"`
	ProviderTransactionID string      `gorm:"type:varchar(100);not null;uniqueIndex" json:"provider_transaction_id"`
	Status                string      `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	PaymentStatus         string      `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`
	TotalAmountPaise      int64       `gorm:"type:bigint;not null" json:"total_amount_paise"`
	Items                 []OrderItem `gorm:"foreignKey:OrderRef" json:"items"`
	PaidAt                *time.Time  `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt             time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is one product+size line of an order.
type OrderItem struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	OrderRef       uint   `gorm:"not null;index" json:"-"`
	ProductID      uint   `gorm:"not null" json:"product_id"`
	Size           string `gorm:"type:varchar(10);not null" json:"size"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	UnitPricePaise int64  `gorm:"type:bigint;not null" json:"unit_price_paise"`
}

// IsTerminal reports whether the order already reached CONFIRMED or CANCELLED.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusConfirmed || o.Status == OrderStatusCancelled
}

// ComputeTotalPaise sums the line items.
func (o *Order) ComputeTotalPaise() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPricePaise * int64(item.Quantity)
	}
	return total
}

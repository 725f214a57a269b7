package repository

import (
	"time"

	"github.com/vastrahub/vastrahub/app/models"
	"gorm.io/gorm"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByOrderID(orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByProviderTransactionID(transactionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").
		Where("provider_transaction_id = ?", transactionID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmIfDraft is a compare-and-swap: the WHERE status='DRAFT' guard means
// that of any number of racing confirmations, exactly one takes effect and a
// terminal state is never overwritten.
func (r *orderRepository) ConfirmIfDraft(orderID string, paidAt time.Time) (bool, error) {
	tx := r.db.Model(&models.Order{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderStatusDraft).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusConfirmed,
			"payment_status": models.PaymentStatusPaid,
			"paid_at":        paidAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *orderRepository) CancelIfDraft(orderID string) (bool, error) {
	tx := r.db.Model(&models.Order{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderStatusDraft).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusCancelled,
			"payment_status": models.PaymentStatusFailed,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

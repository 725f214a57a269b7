package repository

import (
	"time"

	"github.com/vastrahub/vastrahub/app/models"
	"gorm.io/gorm"
)

// checkoutRepository implements the CheckoutRepository interface
type checkoutRepository struct {
	db *gorm.DB
}

// NewCheckoutRepository creates a new checkout repository instance
func NewCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

func (r *checkoutRepository) CreateSession(session *models.CheckoutSession) error {
	return r.db.Create(session).Error
}

func (r *checkoutRepository) GetSession(sessionID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *checkoutRepository) GetSessionByOrderID(orderID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.Where("order_id = ?", orderID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *checkoutRepository) MarkSessionStockReserved(sessionID string) error {
	return r.db.Model(&models.CheckoutSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"stock_reserved": true,
			"status":         models.CheckoutStatusAwaitingPayment,
		}).Error
}

func (r *checkoutRepository) TransitionSession(sessionID, from, to string) (bool, error) {
	tx := r.db.Model(&models.CheckoutSession{}).
		Where("session_id = ? AND status = ?", sessionID, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *checkoutRepository) ListExpiredSessions(now time.Time, limit int) ([]models.CheckoutSession, error) {
	var sessions []models.CheckoutSession
	err := r.db.
		Where("status IN ? AND expires_at < ?",
			[]string{models.CheckoutStatusPending, models.CheckoutStatusAwaitingPayment}, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *checkoutRepository) CreateReservation(res *models.Reservation) error {
	return r.db.Create(res).Error
}

func (r *checkoutRepository) ListReservationsBySession(sessionID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.Where("session_id = ?", sessionID).Find(&reservations).Error
	return reservations, err
}

// TransitionReservation is the resolution gate for a hold: confirm, release
// and expiry all CAS the status away from its current value, so of two racing
// resolvers only one proceeds to touch the stock ledger.
func (r *checkoutRepository) TransitionReservation(reservationID, from, to string) (bool, error) {
	tx := r.db.Model(&models.Reservation{}).
		Where("reservation_id = ? AND status = ?", reservationID, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *checkoutRepository) ListExpiredReservations(now time.Time, limit int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.
		Where("status = ? AND expires_at < ?", models.ReservationStatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reservations).Error
	return reservations, err
}

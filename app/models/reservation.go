package models

import "time"

const (
	ReservationStatusActive    = "active"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusExpired   = "expired"
	ReservationStatusReleased  = "released"
)

// Reservation is a hold of quantity against one product+size for one checkout
// session. The status column is the resolution gate: confirm, release and
// expiry all go through a compare-and-swap on status so every hold is
// resolved exactly once even when a sweeper and a webhook race.
type Reservation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ReservationID string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"reservation_id"`
	SessionID     string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	ProductID     uint      `gorm:"not null" json:"product_id"`
	Size          string    `gorm:"type:varchar(10);not null" json:"size"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index:idx_reservations_status_expiry,priority:1" json:"status"`
	ExpiresAt     time.Time `gorm:"not null;index:idx_reservations_status_expiry,priority:2" json:"expires_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsResolved reports whether the hold has already been confirmed, released
// or expired.
func (r *Reservation) IsResolved() bool {
	return r.Status != ReservationStatusActive
}

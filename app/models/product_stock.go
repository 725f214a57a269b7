package models

import "time"

// ProductStock is the inventory ledger row for one product+size combination.
// Stock is the on-hand count, Reserved the quantity held by in-flight
// checkouts; both are only ever mutated through the StockRepository's
// conditional single-row UPDATEs, never via read-modify-write.
type ProductStock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index:ux_product_stocks_product_size,unique,priority:1" json:"product_id"`
	Size      string    `gorm:"type:varchar(10);not null;index:ux_product_stocks_product_size,unique,priority:2" json:"size"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	Reserved  int       `gorm:"not null;default:0" json:"reserved"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AvailableStock is what a new checkout may still reserve.
func (ps *ProductStock) AvailableStock() int {
	return ps.Stock - ps.Reserved
}

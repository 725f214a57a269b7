package repository

import (
	"github.com/vastrahub/vastrahub/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stockRepository implements the StockRepository interface. Every mutation is
// a single conditional UPDATE on one product+size row; multiple process
// instances may run concurrently, so the guards live in SQL, not in Go.
type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository creates a new stock repository instance
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Reserve(productID uint, size string, qty int) (bool, error) {
	tx := r.db.Model(&models.ProductStock{}).
		Where("product_id = ? AND size = ? AND stock - reserved >= ?", productID, size, qty).
		Update("reserved", gorm.Expr("reserved + ?", qty))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Commit debits the sale: stock and reserved both drop by qty. The guard
// reserved >= qty defends against a coincident release racing the commit; a
// failed guard surfaces to the caller as a reservation inconsistency.
func (r *stockRepository) Commit(productID uint, size string, qty int) (bool, error) {
	tx := r.db.Model(&models.ProductStock{}).
		Where("product_id = ? AND size = ? AND reserved >= ?", productID, size, qty).
		Updates(map[string]interface{}{
			"stock":    gorm.Expr("stock - ?", qty),
			"reserved": gorm.Expr("reserved - ?", qty),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *stockRepository) Release(productID uint, size string, qty int) error {
	return r.db.Model(&models.ProductStock{}).
		Where("product_id = ? AND size = ?", productID, size).
		Update("reserved", gorm.Expr("GREATEST(reserved - ?, 0)", qty)).Error
}

func (r *stockRepository) Get(productID uint, size string) (*models.ProductStock, error) {
	var stock models.ProductStock
	if err := r.db.Where("product_id = ? AND size = ?", productID, size).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *stockRepository) ListByProduct(productID uint) ([]models.ProductStock, error) {
	var stocks []models.ProductStock
	err := r.db.Where("product_id = ?", productID).Order("size ASC").Find(&stocks).Error
	return stocks, err
}

func (r *stockRepository) Upsert(stock *models.ProductStock) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "product_id"},
			{Name: "size"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
	}).Create(stock).Error
}

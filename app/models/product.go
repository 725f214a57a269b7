package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Standard apparel sizes carried per product.
const (
	SizeXS  = "XS"
	SizeS   = "S"
	SizeM   = "M"
	SizeL   = "L"
	SizeXL  = "XL"
	SizeXXL = "XXL"
)

type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Slug        string    `gorm:"type:varchar(220);uniqueIndex" json:"slug" validate:"required,max=220"`
	Description string    `gorm:"type:text" json:"description" validate:"max=5000"`
	PricePaise  int64     `gorm:"type:bigint;not null" json:"price_paise" validate:"gt=0"` // unit price in paise
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsValidSize reports whether s is one of the carried apparel sizes.
func IsValidSize(s string) bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	default:
		return false
	}
}

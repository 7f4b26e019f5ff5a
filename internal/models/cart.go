package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        uint            `gorm:"primaryKey"                                          json:"id"`
	UserID    uint            `gorm:"uniqueIndex:idx_user_product;not null"               json:"user_id"`
	ProductID uint            `gorm:"uniqueIndex:idx_user_product;not null;index"         json:"product_id"`
	Quantity  int             `gorm:"not null;default:1;check:quantity > 0"               json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;check:unit_price >= 0"   json:"unit_price"`
	CreatedAt time.Time       `                                                           json:"created_at"`
	UpdatedAt time.Time       `                                                           json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

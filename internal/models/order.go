package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
)

// ErrImmutableRecord is returned for any attempt to delete an order or its lines.
var ErrImmutableRecord = errors.New("immutable record")

type Order struct {
	ID              uint               `gorm:"primaryKey"                                    json:"id"`
	UserID          uint               `gorm:"index;not null"                                json:"user_id"`
	Total           decimal.Decimal    `gorm:"type:decimal(12,2);not null;check:total >= 0"  json:"total"`
	Status          domain.OrderStatus `gorm:"size:20;not null;index;default:'pending'"        json:"status"`
	ShippingAddress string             `gorm:"type:text;not null"                            json:"shipping_address"`
	ContactPhone    string             `gorm:"size:32;not null"                              json:"contact_phone"`
	Notes           *string            `gorm:"type:text"                                     json:"notes,omitempty"`
	PaidAt          *time.Time         `                                                     json:"paid_at,omitempty"`
	ShippedAt       *time.Time         `                                                     json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time         `                                                     json:"delivered_at,omitempty"`
	CancelledAt     *time.Time         `                                                     json:"cancelled_at,omitempty"`
	CreatedAt       time.Time          `gorm:"index"                                         json:"created_at"`
	UpdatedAt       time.Time          `                                                     json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"items,omitempty"`
}

func (*Order) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}

// OrderItem is a snapshot; ProductID deliberately carries no foreign key.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                                          json:"id"`
	OrderID   uint            `gorm:"index;not null"                                      json:"order_id"`
	ProductID uint            `gorm:"not null"                                            json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity > 0"                         json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;check:unit_price >= 0"   json:"unit_price"`
}

func (*OrderItem) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderStatusChange struct {
	ID         uint               `gorm:"primaryKey"        json:"id"`
	OrderID    uint               `gorm:"index;not null"    json:"order_id"`
	FromStatus domain.OrderStatus `gorm:"size:20"           json:"from_status,omitempty"`
	ToStatus   domain.OrderStatus `gorm:"size:20;not null"  json:"to_status"`
	ChangedAt  time.Time          `gorm:"not null"          json:"changed_at"`
}

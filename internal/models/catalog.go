package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null"            json:"name"`
	Description *string   `gorm:"type:text"                                json:"description,omitempty"`
	Active      bool      `gorm:"not null;default:true"                    json:"active"`
	CreatedAt   time.Time `                                                json:"created_at"`
	UpdatedAt   time.Time `                                                json:"updated_at"`

	Subcategories []Subcategory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subcategories,omitempty"`
	Products      []Product     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

type Subcategory struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"                              json:"id"`
	CategoryID  uint      `gorm:"not null;uniqueIndex:idx_subcategory_category_name"    json:"category_id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex:idx_subcategory_category_name" json:"name"`
	Description *string   `gorm:"type:text"                                             json:"description,omitempty"`
	Active      bool      `gorm:"not null;default:true"                                 json:"active"`
	CreatedAt   time.Time `                                                             json:"created_at"`
	UpdatedAt   time.Time `                                                             json:"updated_at"`

	Products []Product `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"products,omitempty"`
}

type Product struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"                      json:"id"`
	Name          string          `gorm:"size:200;not null"                             json:"name"`
	Description   *string         `gorm:"type:text"                                     json:"description,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;check:price >= 0"  json:"price"`
	Stock         int             `gorm:"not null;default:0;check:stock >= 0"           json:"stock"`
	ImageRef      *string         `gorm:"size:255"                                      json:"image_ref,omitempty"`
	SubcategoryID uint            `gorm:"not null;index"                                json:"subcategory_id"`
	CategoryID    uint            `gorm:"not null;index"                                json:"category_id"`
	Active        bool            `gorm:"not null;default:true;index"                   json:"active"`
	CreatedAt     time.Time       `                                                     json:"created_at"`
	UpdatedAt     time.Time       `                                                     json:"updated_at"`
}

package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type PatchCatalogRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CreateSubcategoryRequest struct {
	CategoryID  uint    `json:"category_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type CreateProductRequest struct {
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	ImageRef      *string         `json:"image_ref"`
	SubcategoryID uint            `json:"subcategory_id"`
	CategoryID    uint            `json:"category_id"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageRef    *string          `json:"image_ref"`
}

// StockRequest adds Delta units, or removes them when negative.
type StockRequest struct {
	Delta int `json:"delta"`
}

type AddCartLineRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items []models.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

type CheckoutRequest struct {
	ShippingAddress string  `json:"shipping_address"`
	ContactPhone    string  `json:"contact_phone"`
	Notes           *string `json:"notes"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

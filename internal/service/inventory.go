package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/pkg/db"
)

const maxProductNameLen = 200

type InventoryService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Index  search.Index
	Files  storage.FileStore
}

type ProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	Stock         int
	ImageRef      *string
	SubcategoryID uint
	CategoryID    uint
}

// ProductPatch never carries stock; use IncreaseStock and DecreaseStock.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageRef    *string
}

type stockChange struct {
	ProductID uint `json:"product_id"`
	Delta     int  `json:"delta"`
}

func (s *InventoryService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	name, err := validName("product name", in.Name, minNameLen, maxProductNameLen)
	if err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("stock cannot be negative: %w", ErrValidation)
	}
	if in.SubcategoryID == 0 || in.CategoryID == 0 {
		return nil, fmt.Errorf("category_id and subcategory_id are required: %w", ErrValidation)
	}

	prod := &models.Product{
		Name:          name,
		Description:   trimmedPtr(in.Description),
		Price:         in.Price.Round(2),
		Stock:         in.Stock,
		ImageRef:      trimmedPtr(in.ImageRef),
		SubcategoryID: in.SubcategoryID,
		CategoryID:    in.CategoryID,
		Active:        true,
	}
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := checkParents(ctx, tx, in.SubcategoryID, in.CategoryID, true); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, prod)
	})
	if err != nil {
		return nil, err
	}

	reindex(ctx, s.Repo, s.Index, []uint{prod.ID})
	publish(ctx, s.Events, events.TopicCatalog, key(prod.ID), "product_created", prod)
	return prod, nil
}

// checkParents locks both parents against concurrent deactivation. Missing
// parents are a validation failure when creating and not-found otherwise.
func checkParents(ctx context.Context, tx *repo.GormRepo, subcategoryID, categoryID uint, creating bool) error {
	missing := func(what string, id uint, err error) error {
		if creating && errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %d does not exist: %w", what, id, ErrValidation)
		}
		return notFound(what, id, err)
	}
	inactive := func(what string, id uint) error {
		if creating {
			return fmt.Errorf("%s %d is inactive: %w: %w", what, id, ErrInactiveParent, ErrValidation)
		}
		return fmt.Errorf("%s %d is inactive: %w", what, id, ErrInactiveParent)
	}

	sub, err := tx.GetSubcategoryForShare(ctx, subcategoryID)
	if err != nil {
		return missing("subcategory", subcategoryID, err)
	}
	category, err := tx.GetCategoryForShare(ctx, categoryID)
	if err != nil {
		return missing("category", categoryID, err)
	}
	if sub.CategoryID != category.ID {
		return fmt.Errorf("subcategory %d does not belong to category %d: %w", sub.ID, category.ID, ErrValidation)
	}
	if !category.Active {
		return inactive("category", category.ID)
	}
	if !sub.Active {
		return inactive("subcategory", sub.ID)
	}
	return nil
}

// GetProduct returns the product whatever its activation state.
func (s *InventoryService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound("product", id, err)
	}
	return prod, nil
}

// VisibleProduct hides inactive products as if they did not exist.
func (s *InventoryService) VisibleProduct(ctx context.Context, id uint) (*models.Product, error) {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !prod.Active {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return prod, nil
}

func (s *InventoryService) ListProducts(ctx context.Context, filter repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, filter, offset, limit)
}

func (s *InventoryService) UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	var (
		prod     *models.Product
		oldImage string
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetProduct(ctx, id)
		if err != nil {
			return notFound("product", id, err)
		}

		fields := map[string]any{}
		if patch.Name != nil {
			name, err := validName("product name", *patch.Name, minNameLen, maxProductNameLen)
			if err != nil {
				return err
			}
			fields["name"] = name
		}
		if patch.Description != nil {
			fields["description"] = trimmedPtr(patch.Description)
		}
		if patch.Price != nil {
			if patch.Price.IsNegative() {
				return fmt.Errorf("price cannot be negative: %w", ErrValidation)
			}
			fields["price"] = patch.Price.Round(2)
		}
		if patch.ImageRef != nil {
			ref := trimmedPtr(patch.ImageRef)
			fields["image_ref"] = ref
			if current.ImageRef != nil && (ref == nil || *ref != *current.ImageRef) {
				oldImage = *current.ImageRef
			}
		}
		if len(fields) > 0 {
			if _, err := tx.UpdateProduct(ctx, id, fields); err != nil {
				return err
			}
		}

		prod, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if oldImage != "" {
		removeImages(ctx, s.Files, []string{oldImage})
	}
	reindex(ctx, s.Repo, s.Index, []uint{id})
	publish(ctx, s.Events, events.TopicCatalog, key(id), "product_updated", prod)
	return prod, nil
}

// ActivateProduct requires both the subcategory and the category to be active.
func (s *InventoryService) ActivateProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.setActive(ctx, id, true)
}

func (s *InventoryService) DeactivateProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.setActive(ctx, id, false)
}

func (s *InventoryService) setActive(ctx context.Context, id uint, active bool) (*models.Product, error) {
	var prod *models.Product
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetProduct(ctx, id)
		if err != nil {
			return notFound("product", id, err)
		}
		if active {
			if err := checkParents(ctx, tx, current.SubcategoryID, current.CategoryID, false); err != nil {
				return err
			}
		}
		if _, err := tx.SetProductActive(ctx, id, active); err != nil {
			return err
		}
		prod, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	reindex(ctx, s.Repo, s.Index, []uint{id})
	publish(ctx, s.Events, events.TopicCatalog, key(id), "product_updated", prod)
	return prod, nil
}

// HasStock is a pure read.
func (s *InventoryService) HasStock(ctx context.Context, id uint, qty int) (bool, error) {
	if qty < 1 {
		return false, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return false, err
	}
	return qty <= prod.Stock, nil
}

func (s *InventoryService) DecreaseStock(ctx context.Context, id uint, qty int) error {
	if err := decreaseStock(ctx, s.Repo, id, qty); err != nil {
		return err
	}
	reindex(ctx, s.Repo, s.Index, []uint{id})
	publish(ctx, s.Events, events.TopicCatalog, key(id), "stock_changed", stockChange{ProductID: id, Delta: -qty})
	return nil
}

func (s *InventoryService) IncreaseStock(ctx context.Context, id uint, qty int) error {
	if err := increaseStock(ctx, s.Repo, id, qty); err != nil {
		return err
	}
	reindex(ctx, s.Repo, s.Index, []uint{id})
	publish(ctx, s.Events, events.TopicCatalog, key(id), "stock_changed", stockChange{ProductID: id, Delta: qty})
	return nil
}

func (s *InventoryService) DeleteProduct(ctx context.Context, id uint) error {
	var refs []string
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetProduct(ctx, id); err != nil {
			return notFound("product", id, err)
		}
		var err error
		refs, err = purgeProducts(ctx, tx, []uint{id})
		return err
	})
	if err != nil {
		return err
	}

	removeImages(ctx, s.Files, refs)
	unindex(ctx, s.Index, []uint{id})
	publish(ctx, s.Events, events.TopicCatalog, key(id), "product_deleted", map[string]any{"product_id": id})
	return nil
}

// decreaseStock relies on one conditional UPDATE; the follow-up read only
// builds the error.
func decreaseStock(ctx context.Context, r *repo.GormRepo, id uint, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}
	rows, err := r.DecreaseStock(ctx, id, qty)
	if db.IsCheckViolation(err) {
		// the stock >= 0 constraint refused the update
		return &InsufficientStockError{ProductID: id, Requested: qty}
	}
	if err != nil {
		return fmt.Errorf("decrease stock of product %d: %w", id, err)
	}
	if rows > 0 {
		return nil
	}

	prod, err := r.GetProduct(ctx, id)
	if err != nil {
		return notFound("product", id, err)
	}
	return &InsufficientStockError{ProductID: id, Requested: qty, Available: prod.Stock}
}

func increaseStock(ctx context.Context, r *repo.GormRepo, id uint, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}
	rows, err := r.IncreaseStock(ctx, id, qty)
	if err != nil {
		return fmt.Errorf("increase stock of product %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

// availableProduct loads a product that can be sold in qty units right now.
func availableProduct(ctx context.Context, r *repo.GormRepo, id uint, qty int) (*models.Product, error) {
	prod, err := r.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound("product", id, err)
	}
	if !prod.Active {
		return nil, fmt.Errorf("product %d: %w", id, ErrInactiveProduct)
	}
	if qty > prod.Stock {
		return nil, &InsufficientStockError{ProductID: id, Requested: qty, Available: prod.Stock}
	}
	return prod, nil
}

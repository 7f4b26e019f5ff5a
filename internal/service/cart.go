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
	"github.com/Skotchmaster/storefront/pkg/db"
)

// CartService checks stock when lines change but reserves nothing; checkout
// is where stock is actually taken.
type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CartService) AddLine(ctx context.Context, userID, productID uint, qty int) (*models.CartItem, error) {
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	var item *models.CartItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		prod, err := availableProduct(ctx, tx, productID, qty)
		if err != nil {
			return err
		}

		_, err = tx.GetCartItem(ctx, userID, productID)
		if err == nil {
			return fmt.Errorf("product %d is already in the cart, update its quantity instead: %w", productID, ErrValidation)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		item = &models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: prod.Price,
		}
		return tx.CreateCartItem(ctx, item)
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("product %d is already in the cart, update its quantity instead: %w", productID, ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCart, key(userID), "cart_line_added", item)
	return item, nil
}

// UpdateQuantity keeps the price frozen when the line was added.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uint, qty int) (*models.CartItem, error) {
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	var item *models.CartItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		var err error
		item, err = tx.GetCartItem(ctx, userID, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d is not in the cart: %w", productID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if _, err := availableProduct(ctx, tx, productID, qty); err != nil {
			return err
		}
		if _, err := tx.UpdateCartQuantity(ctx, userID, productID, qty); err != nil {
			return err
		}
		item.Quantity = qty
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCart, key(userID), "cart_line_updated", item)
	return item, nil
}

func (s *CartService) RemoveLine(ctx context.Context, userID, productID uint) error {
	rows, err := s.Repo.DeleteCartItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	if rows > 0 {
		publish(ctx, s.Events, events.TopicCart, key(userID), "cart_line_removed", map[string]any{
			"user_id":    userID,
			"product_id": productID,
		})
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	rows, err := s.Repo.ClearCart(ctx, userID)
	if err != nil {
		return err
	}
	if rows > 0 {
		publish(ctx, s.Events, events.TopicCart, key(userID), "cart_cleared", map[string]any{
			"user_id": userID,
			"lines":   rows,
		})
	}
	return nil
}

func (s *CartService) Lines(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return linesTotal(items), nil
}

func linesTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Index  search.Index
	Now    func() time.Time
}

type CheckoutInput struct {
	ShippingAddress string
	ContactPhone    string
	Notes           *string
}

type statusChanged struct {
	OrderID uint               `json:"order_id"`
	UserID  uint               `json:"user_id"`
	From    domain.OrderStatus `json:"from"`
	To      domain.OrderStatus `json:"to"`
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Checkout turns the user's cart into a pending order. Stock is taken with
// conditional updates, so a concurrent checkout of the last unit fails here
// with ErrInsufficientStock and nothing is written.
func (s *OrderService) Checkout(ctx context.Context, userID uint, in CheckoutInput) (*models.Order, error) {
	address := strings.TrimSpace(in.ShippingAddress)
	phone := strings.TrimSpace(in.ContactPhone)
	if address == "" {
		return nil, fmt.Errorf("shipping address is required: %w", ErrValidation)
	}
	if phone == "" {
		return nil, fmt.Errorf("contact phone is required: %w", ErrValidation)
	}

	var order *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		lines, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("user %d: %w", userID, ErrEmptyCart)
		}
		// one lock order across checkouts
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		items := make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			if _, err := availableProduct(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			if err := decreaseStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			item := models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			}
			items = append(items, item)
			total = total.Add(item.LineTotal())
		}

		order = &models.Order{
			UserID:          userID,
			Total:           total,
			Status:          domain.OrderStatusPending,
			ShippingAddress: address,
			ContactPhone:    phone,
			Notes:           trimmedPtr(in.Notes),
			Items:           items,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := tx.AddStatusChange(ctx, &models.OrderStatusChange{
			OrderID:   order.ID,
			ToStatus:  domain.OrderStatusPending,
			ChangedAt: s.now(),
		}); err != nil {
			return err
		}
		if _, err := tx.ClearCart(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_created", "order_id", order.ID, "user_id", userID, "total", order.Total.StringFixed(2))
	reindex(ctx, s.Repo, s.Index, itemProductIDs(order.Items))
	publish(ctx, s.Events, events.TopicOrder, key(order.ID), "order_created", order)
	return order, nil
}

// ChangeStatus moves an order along pending, paid, shipped, delivered.
// Cancellation goes through Cancel so stock is returned.
func (s *OrderService) ChangeStatus(ctx context.Context, id uint, raw string) (*models.Order, error) {
	to, err := domain.ParseOrderStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidStatus)
	}
	if to == domain.OrderStatusCancelled {
		return s.Cancel(ctx, id)
	}

	var (
		order *models.Order
		from  domain.OrderStatus
	)
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFound("order", id, err)
		}
		from = current.Status
		if from.IsTerminal() {
			return fmt.Errorf("order %d is %s and final: %w: %w", id, from, ErrInvalidTransition, ErrInvalidStatus)
		}
		if !from.CanTransition(to) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w: %w", id, from, to, ErrInvalidTransition, ErrInvalidStatus)
		}

		now := s.now()
		fields := map[string]any{"status": to}
		switch to {
		case domain.OrderStatusPaid:
			fields["paid_at"] = now
		case domain.OrderStatusShipped:
			fields["shipped_at"] = now
		case domain.OrderStatusDelivered:
			fields["delivered_at"] = now
		}
		if err := s.applyStatus(ctx, tx, current, to, fields, now); err != nil {
			return err
		}

		order, err = tx.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicOrder, key(id), "order_status_changed", statusChanged{
		OrderID: id, UserID: order.UserID, From: from, To: to,
	})
	return order, nil
}

// Cancel returns every ordered quantity to stock and marks the order
// cancelled, all in one transaction.
func (s *OrderService) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	var (
		order *models.Order
		from  domain.OrderStatus
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFound("order", id, err)
		}
		from = current.Status
		if !from.CanBeCancelled() {
			return fmt.Errorf("order %d is %s and cannot be cancelled: %w", id, from, ErrInvalidTransition)
		}

		items := append([]models.OrderItem(nil), current.Items...)
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, it := range items {
			err := increaseStock(ctx, tx, it.ProductID, it.Quantity)
			if errors.Is(err, ErrNotFound) {
				logging.FromContext(ctx).Warn("stock_restitution_skipped",
					"order_id", id, "product_id", it.ProductID, "quantity", it.Quantity, "reason", "product deleted")
				continue
			}
			if err != nil {
				return err
			}
		}

		now := s.now()
		fields := map[string]any{
			"status":       domain.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if err := s.applyStatus(ctx, tx, current, domain.OrderStatusCancelled, fields, now); err != nil {
			return err
		}

		order, err = tx.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_cancelled", "order_id", id, "from", from)
	reindex(ctx, s.Repo, s.Index, itemProductIDs(order.Items))
	publish(ctx, s.Events, events.TopicOrder, key(id), "order_cancelled", statusChanged{
		OrderID: id, UserID: order.UserID, From: from, To: domain.OrderStatusCancelled,
	})
	return order, nil
}

// applyStatus writes the new status only if nobody changed it since current
// was read, then records the audit row.
func (s *OrderService) applyStatus(ctx context.Context, tx *repo.GormRepo, current *models.Order, to domain.OrderStatus, fields map[string]any, at time.Time) error {
	rows, err := tx.UpdateOrderStatus(ctx, current.ID, current.Status, fields)
	if err != nil {
		return fmt.Errorf("update order %d: %w", current.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("order %d is no longer %s: %w", current.ID, current.Status, ErrInvalidTransition)
	}
	return tx.AddStatusChange(ctx, &models.OrderStatusChange{
		OrderID:    current.ID,
		FromStatus: current.Status,
		ToStatus:   to,
		ChangedAt:  at,
	})
}

// DeleteOrder always fails: orders are cancelled, never deleted.
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("order %d cannot be deleted, cancel it instead: %w", id, ErrImmutableRecord)
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return order, nil
}

func (s *OrderService) ByStatus(ctx context.Context, raw string, offset, limit int) (int64, []models.Order, error) {
	status, err := domain.ParseOrderStatus(raw)
	if err != nil {
		return 0, nil, fmt.Errorf("%v: %w", err, ErrInvalidStatus)
	}
	return s.Repo.ListOrdersByStatus(ctx, status, offset, limit)
}

// HistoryForUser lists the newest orders first.
func (s *OrderService) HistoryForUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID, offset, limit)
}

func (s *OrderService) StatusHistory(ctx context.Context, id uint) ([]models.OrderStatusChange, error) {
	if _, err := s.Repo.GetOrder(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return s.Repo.ListStatusChanges(ctx, id)
}

func itemProductIDs(items []models.OrderItem) []uint {
	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return ids
}

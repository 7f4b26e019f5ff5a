package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) AddStatusChange(ctx context.Context, change *models.OrderStatusChange) error {
	return r.DB.WithContext(ctx).Create(change).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrderForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.forUpdate(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus only applies when the row still holds the expected status.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, from domain.OrderStatus, fields map[string]any) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("status = ?", status)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) ListStatusChanges(ctx context.Context, orderID uint) ([]models.OrderStatusChange, error) {
	var changes []models.OrderStatusChange
	if err := r.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

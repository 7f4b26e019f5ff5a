package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

type ProductFilter struct {
	CategoryID    uint
	SubcategoryID uint
	ActiveOnly    bool
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.SubcategoryID != 0 {
		q = q.Where("subcategory_id = ?", f.SubcategoryID)
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	return q
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, filter ProductFilter, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := filter.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := filter.apply(r.DB.WithContext(ctx).Model(&models.Product{})).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) ProductIDs(ctx context.Context, filter ProductFilter) ([]uint, error) {
	var ids []uint
	err := filter.apply(r.DB.WithContext(ctx).Model(&models.Product{})).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, fields map[string]any) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) SetProductActive(ctx context.Context, id uint, active bool) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("active", active)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeactivateProductsBySubcategory(ctx context.Context, subcategoryID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("subcategory_id = ?", subcategoryID).
		Update("active", false)
	return res.RowsAffected, res.Error
}

// DecreaseStock is a single conditional update; zero affected rows means the
// product is missing or holds less than qty.
func (r *GormRepo) DecreaseStock(ctx context.Context, id uint, qty int) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected, res.Error
}

func (r *GormRepo) IncreaseStock(ctx context.Context, id uint, qty int) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty))
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteProducts(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.DB.WithContext(ctx).Create(category).Error
}

func (r *GormRepo) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategoryForShare blocks concurrent deactivation of the category until the
// surrounding transaction ends.
func (r *GormRepo) GetCategoryForShare(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.forShare(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormRepo) CategoryNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	q := r.DB.WithContext(ctx).Model(&models.Category{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var items []models.Category
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) UpdateCategory(ctx context.Context, id uint, fields map[string]any) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) SetCategoryActive(ctx context.Context, id uint, active bool) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("active", active)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) (int64, error) {
	res := r.DB.WithContext(ctx).Delete(&models.Category{}, id)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CreateSubcategory(ctx context.Context, sub *models.Subcategory) error {
	return r.DB.WithContext(ctx).Create(sub).Error
}

func (r *GormRepo) GetSubcategory(ctx context.Context, id uint) (*models.Subcategory, error) {
	var sub models.Subcategory
	if err := r.DB.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *GormRepo) GetSubcategoryForShare(ctx context.Context, id uint) (*models.Subcategory, error) {
	var sub models.Subcategory
	if err := r.forShare(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *GormRepo) SubcategoryNameTaken(ctx context.Context, categoryID uint, name string, excludeID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Subcategory{}).
		Where("category_id = ? AND name = ? AND id <> ?", categoryID, name, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) ListSubcategories(ctx context.Context, categoryID uint, activeOnly bool) ([]models.Subcategory, error) {
	q := r.DB.WithContext(ctx).Model(&models.Subcategory{}).Where("category_id = ?", categoryID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var items []models.Subcategory
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) SubcategoryIDs(ctx context.Context, categoryID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.Subcategory{}).
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *GormRepo) UpdateSubcategory(ctx context.Context, id uint, fields map[string]any) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Subcategory{}).Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) SetSubcategoryActive(ctx context.Context, id uint, active bool) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Subcategory{}).Where("id = ?", id).Update("active", active)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteSubcategory(ctx context.Context, id uint) (int64, error) {
	res := r.DB.WithContext(ctx).Delete(&models.Subcategory{}, id)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteSubcategoriesByCategory(ctx context.Context, categoryID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&models.Subcategory{})
	return res.RowsAffected, res.Error
}

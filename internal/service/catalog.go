package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	minNameLen         = 3
	maxCategoryNameLen = 100
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Index  search.Index
	Files  storage.FileStore
}

type CatalogPatch struct {
	Name        *string
	Description *string
}

// DeactivationResult counts the rows switched off by one cascade.
type DeactivationResult struct {
	Subcategories int64 `json:"subcategories"`
	Products      int64 `json:"products"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string, description *string) (*models.Category, error) {
	name, err := validName("category name", name, minNameLen, maxCategoryNameLen)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: name, Description: trimmedPtr(description), Active: true}
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		taken, err := tx.CategoryNameTaken(ctx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("category %q already exists: %w", name, ErrValidation)
		}
		return tx.CreateCategory(ctx, category)
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("category %q already exists: %w", name, ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCatalog, key(category.ID), "category_created", category)
	return category, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound("category", id, err)
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx, activeOnly)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, patch CatalogPatch) (*models.Category, error) {
	var category *models.Category
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetCategory(ctx, id)
		if err != nil {
			return notFound("category", id, err)
		}

		fields := map[string]any{}
		if patch.Name != nil {
			name, err := validName("category name", *patch.Name, minNameLen, maxCategoryNameLen)
			if err != nil {
				return err
			}
			taken, err := tx.CategoryNameTaken(ctx, name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("category %q already exists: %w", name, ErrValidation)
			}
			fields["name"] = name
		}
		if patch.Description != nil {
			fields["description"] = trimmedPtr(patch.Description)
		}
		if len(fields) > 0 {
			if _, err := tx.UpdateCategory(ctx, current.ID, fields); err != nil {
				return err
			}
		}

		category, err = tx.GetCategory(ctx, id)
		return err
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("category name already exists: %w", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCatalog, key(id), "category_updated", category)
	return category, nil
}

// ActivateCategory leaves every descendant as it is.
func (s *CatalogService) ActivateCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category *models.Category
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return notFound("category", id, err)
		}
		if _, err := tx.SetCategoryActive(ctx, id, true); err != nil {
			return err
		}
		var err error
		category, err = tx.GetCategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCatalog, key(id), "category_activated", category)
	return category, nil
}

// DeactivateCategory switches off the category, every subcategory under it
// and every product under those, all in one transaction.
func (s *CatalogService) DeactivateCategory(ctx context.Context, id uint) (DeactivationResult, error) {
	var (
		res      DeactivationResult
		affected []uint
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		res, affected = DeactivationResult{}, nil

		if _, err := tx.GetCategory(ctx, id); err != nil {
			return notFound("category", id, err)
		}
		if _, err := tx.SetCategoryActive(ctx, id, false); err != nil {
			return fmt.Errorf("deactivate category %d: %w", id, err)
		}

		subIDs, err := tx.SubcategoryIDs(ctx, id)
		if err != nil {
			return err
		}
		for _, subID := range subIDs {
			n, ids, err := deactivateSubcategory(ctx, tx, subID)
			if err != nil {
				return err
			}
			res.Subcategories++
			res.Products += n
			affected = append(affected, ids...)
		}
		return nil
	})
	if err != nil {
		return DeactivationResult{}, err
	}

	logging.FromContext(ctx).Info("category_deactivated",
		"category_id", id, "subcategories", res.Subcategories, "products", res.Products)
	reindex(ctx, s.Repo, s.Index, affected)
	publish(ctx, s.Events, events.TopicCatalog, key(id), "category_deactivated", map[string]any{
		"category_id":   id,
		"subcategories": res.Subcategories,
		"products":      res.Products,
	})
	return res, nil
}

func (s *CatalogService) CreateSubcategory(ctx context.Context, categoryID uint, name string, description *string) (*models.Subcategory, error) {
	name, err := validName("subcategory name", name, minNameLen, maxCategoryNameLen)
	if err != nil {
		return nil, err
	}

	sub := &models.Subcategory{CategoryID: categoryID, Name: name, Description: trimmedPtr(description), Active: true}
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		category, err := tx.GetCategoryForShare(ctx, categoryID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("category %d does not exist: %w", categoryID, ErrValidation)
		}
		if err != nil {
			return err
		}
		if !category.Active {
			return fmt.Errorf("category %d is inactive: %w: %w", categoryID, ErrInactiveParent, ErrValidation)
		}

		taken, err := tx.SubcategoryNameTaken(ctx, categoryID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("subcategory %q already exists in category %d: %w", name, categoryID, ErrValidation)
		}
		return tx.CreateSubcategory(ctx, sub)
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("subcategory %q already exists in category %d: %w", name, categoryID, ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCatalog, key(sub.ID), "subcategory_created", sub)
	return sub, nil
}

func (s *CatalogService) GetSubcategory(ctx context.Context, id uint) (*models.Subcategory, error) {
	sub, err := s.Repo.GetSubcategory(ctx, id)
	if err != nil {
		return nil, notFound("subcategory", id, err)
	}
	return sub, nil
}

func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID uint, activeOnly bool) ([]models.Subcategory, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.Repo.ListSubcategories(ctx, categoryID, activeOnly)
}

func (s *CatalogService) UpdateSubcategory(ctx context.Context, id uint, patch CatalogPatch) (*models.Subcategory, error) {
	var sub *models.Subcategory
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetSubcategory(ctx, id)
		if err != nil {
			return notFound("subcategory", id, err)
		}

		fields := map[string]any{}
		if patch.Name != nil {
			name, err := validName("subcategory name", *patch.Name, minNameLen, maxCategoryNameLen)
			if err != nil {
				return err
			}
			taken, err := tx.SubcategoryNameTaken(ctx, current.CategoryID, name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("subcategory %q already exists in category %d: %w", name, current.CategoryID, ErrValidation)
			}
			fields["name"] = name
		}
		if patch.Description != nil {
			fields["description"] = trimmedPtr(patch.Description)
		}
		if len(fields) > 0 {
			if _, err := tx.UpdateSubcategory(ctx, id, fields); err != nil {
				return err
			}
		}

		sub, err = tx.GetSubcategory(ctx, id)
		return err
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("subcategory name already exists: %w", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCatalog, key(id), "subcategory_updated", sub)
	return sub, nil
}

// ActivateSubcategory requires an active parent category and does not touch
// the products underneath.
func (s *CatalogService) ActivateSubcategory(ctx context.Context, id uint) (*models.Subcategory, error) {
	var sub *models.Subcategory
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetSubcategory(ctx, id)
		if err != nil {
			return notFound("subcategory", id, err)
		}
		category, err := tx.GetCategoryForShare(ctx, current.CategoryID)
		if err != nil {
			return notFound("category", current.CategoryID, err)
		}
		if !category.Active {
			return fmt.Errorf("category %d is inactive: %w", category.ID, ErrInactiveParent)
		}

		if _, err := tx.SetSubcategoryActive(ctx, id, true); err != nil {
			return err
		}
		sub, err = tx.GetSubcategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCatalog, key(id), "subcategory_activated", sub)
	return sub, nil
}

func (s *CatalogService) DeactivateSubcategory(ctx context.Context, id uint) (DeactivationResult, error) {
	var (
		res      DeactivationResult
		affected []uint
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		n, ids, err := deactivateSubcategory(ctx, tx, id)
		if err != nil {
			return err
		}
		res, affected = DeactivationResult{Subcategories: 1, Products: n}, ids
		return nil
	})
	if err != nil {
		return DeactivationResult{}, err
	}

	logging.FromContext(ctx).Info("subcategory_deactivated", "subcategory_id", id, "products", res.Products)
	reindex(ctx, s.Repo, s.Index, affected)
	publish(ctx, s.Events, events.TopicCatalog, key(id), "subcategory_deactivated", map[string]any{
		"subcategory_id": id,
		"products":       res.Products,
	})
	return res, nil
}

// deactivateSubcategory returns how many products it switched off and their ids.
func deactivateSubcategory(ctx context.Context, tx *repo.GormRepo, id uint) (int64, []uint, error) {
	if _, err := tx.GetSubcategory(ctx, id); err != nil {
		return 0, nil, notFound("subcategory", id, err)
	}
	if _, err := tx.SetSubcategoryActive(ctx, id, false); err != nil {
		return 0, nil, fmt.Errorf("deactivate subcategory %d: %w", id, err)
	}

	ids, err := tx.ProductIDs(ctx, repo.ProductFilter{SubcategoryID: id})
	if err != nil {
		return 0, nil, err
	}
	n, err := tx.DeactivateProductsBySubcategory(ctx, id)
	if err != nil {
		return 0, nil, fmt.Errorf("deactivate products of subcategory %d: %w", id, err)
	}
	return n, ids, nil
}

// DeleteCategory removes the category with all of its subcategories, products
// and the cart lines pointing at those products. Order snapshots are kept.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	var (
		ids  []uint
		refs []string
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return notFound("category", id, err)
		}

		var err error
		ids, err = tx.ProductIDs(ctx, repo.ProductFilter{CategoryID: id})
		if err != nil {
			return err
		}
		if refs, err = purgeProducts(ctx, tx, ids); err != nil {
			return err
		}
		if _, err := tx.DeleteSubcategoriesByCategory(ctx, id); err != nil {
			return err
		}
		_, err = tx.DeleteCategory(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	removeImages(ctx, s.Files, refs)
	unindex(ctx, s.Index, ids)
	publish(ctx, s.Events, events.TopicCatalog, key(id), "category_deleted", map[string]any{
		"category_id": id,
		"products":    len(ids),
	})
	return nil
}

func (s *CatalogService) DeleteSubcategory(ctx context.Context, id uint) error {
	var (
		ids  []uint
		refs []string
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetSubcategory(ctx, id); err != nil {
			return notFound("subcategory", id, err)
		}

		var err error
		ids, err = tx.ProductIDs(ctx, repo.ProductFilter{SubcategoryID: id})
		if err != nil {
			return err
		}
		if refs, err = purgeProducts(ctx, tx, ids); err != nil {
			return err
		}
		_, err = tx.DeleteSubcategory(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	removeImages(ctx, s.Files, refs)
	unindex(ctx, s.Index, ids)
	publish(ctx, s.Events, events.TopicCatalog, key(id), "subcategory_deleted", map[string]any{
		"subcategory_id": id,
		"products":       len(ids),
	})
	return nil
}

// purgeProducts deletes products and their cart lines, returning the image
// refs to clean up once the transaction commits.
func purgeProducts(ctx context.Context, tx *repo.GormRepo, ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := tx.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, p := range products {
		if p.ImageRef != nil && *p.ImageRef != "" {
			refs = append(refs, *p.ImageRef)
		}
	}

	if _, err := tx.DeleteCartItemsByProducts(ctx, ids); err != nil {
		return nil, err
	}
	if _, err := tx.DeleteProducts(ctx, ids); err != nil {
		return nil, err
	}
	return refs, nil
}

func removeImages(ctx context.Context, files storage.FileStore, refs []string) {
	if files == nil {
		return
	}
	for _, ref := range refs {
		if !files.DeleteStoredFile(ref) {
			logging.FromContext(ctx).Warn("image_cleanup_failed", "ref", ref)
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
)

func TestCreateCategory_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"too short", "ab", ErrValidation},
		{"blank after trim", "   ", ErrValidation},
		{"too long", string(make([]byte, 101)), ErrValidation},
		{"ok", "  Garden  ", nil},
		{"duplicate", "Garden", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := env.Catalog.CreateCategory(ctx, tt.input, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Garden", c.Name)
			assert.True(t, c.Active)
		})
	}
}

func TestCreateSubcategory_Parent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.category(t, "Kitchen")

	_, err := env.Catalog.CreateSubcategory(ctx, 999, "Mugs", nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, errors.Is(err, ErrInactiveParent))

	_, err = env.Catalog.CreateSubcategory(ctx, c.ID, "Mugs", nil)
	require.NoError(t, err)

	_, err = env.Catalog.CreateSubcategory(ctx, c.ID, "Mugs", nil)
	require.ErrorIs(t, err, ErrValidation, "name is unique within the category")

	other := env.category(t, "Office")
	_, err = env.Catalog.CreateSubcategory(ctx, other.ID, "Mugs", nil)
	require.NoError(t, err, "same name is allowed under another category")

	_, err = env.Catalog.DeactivateCategory(ctx, c.ID)
	require.NoError(t, err)

	_, err = env.Catalog.CreateSubcategory(ctx, c.ID, "Plates", nil)
	require.ErrorIs(t, err, ErrInactiveParent)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeactivateCategory_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.category(t, "Kitchen")
	mugs := env.subcategory(t, c.ID, "Mugs")
	plates := env.subcategory(t, c.ID, "Plates")
	env.subcategory(t, c.ID, "Empty")
	p1 := env.product(t, mugs, "Red Mug", "9.99", 10)
	p2 := env.product(t, mugs, "Blue Mug", "9.99", 10)
	p3 := env.product(t, plates, "Dinner Plate", "4.50", 3)

	outside := env.category(t, "Office")
	pens := env.subcategory(t, outside.ID, "Pens")
	pen := env.product(t, pens, "Gel Pen", "1.20", 50)

	res, err := env.Catalog.DeactivateCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, DeactivationResult{Subcategories: 3, Products: 3}, res)

	assert.EqualValues(t, 0, env.count(t, &models.Subcategory{}, "category_id = ? AND active = ?", c.ID, true))
	assert.EqualValues(t, 0, env.count(t, &models.Product{}, "category_id = ? AND active = ?", c.ID, true))
	assert.EqualValues(t, 1, env.count(t, &models.Product{}, "id = ? AND active = ?", pen.ID, true))

	for _, id := range []uint{p1.ID, p2.ID, p3.ID} {
		d, ok := env.Index.doc(id)
		require.True(t, ok)
		assert.False(t, d.Active, "product %d stays hidden in search", id)
	}
	total, _, err := env.Index.Search(ctx, "mug", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.Contains(t, eventTypes(env.Events, events.TopicCatalog), "category_deactivated")

	_, err = env.Inventory.CreateProduct(ctx, ProductInput{
		Name:          "Green Mug",
		Price:         decimal.RequireFromString("9.99"),
		SubcategoryID: mugs.ID,
		CategoryID:    c.ID,
	})
	require.ErrorIs(t, err, ErrInactiveParent)
}

func TestDeactivateCategory_RollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 10)

	// a trigger makes the product update fail after the category and the
	// subcategory have already been switched off
	require.NoError(t, env.DB.Exec(`
		CREATE TRIGGER products_no_deactivate BEFORE UPDATE OF active ON products
		WHEN NEW.active = 0
		BEGIN SELECT RAISE(ABORT, 'product update rejected'); END`).Error)

	_, err := env.Catalog.DeactivateCategory(ctx, c.ID)
	require.Error(t, err)

	cat, err := env.Repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cat.Active)

	s, err := env.Repo.GetSubcategory(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, s.Active)

	prod, err := env.Repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, prod.Active)

	assert.NotContains(t, eventTypes(env.Events, events.TopicCatalog), "category_deactivated")
}

func TestDeactivateSubcategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, mugs := env.catalog(t)
	plates := env.subcategory(t, c.ID, "Plates")
	env.product(t, mugs, "Red Mug", "9.99", 10)
	env.product(t, mugs, "Blue Mug", "9.99", 10)
	plate := env.product(t, plates, "Dinner Plate", "4.50", 3)

	res, err := env.Catalog.DeactivateSubcategory(ctx, mugs.ID)
	require.NoError(t, err)
	assert.Equal(t, DeactivationResult{Subcategories: 1, Products: 2}, res)

	cat, err := env.Catalog.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cat.Active)

	prod, err := env.Inventory.GetProduct(ctx, plate.ID)
	require.NoError(t, err)
	assert.True(t, prod.Active)

	_, err = env.Catalog.DeactivateSubcategory(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestActivation_DoesNotCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 10)

	_, err := env.Catalog.DeactivateCategory(ctx, c.ID)
	require.NoError(t, err)

	_, err = env.Catalog.ActivateSubcategory(ctx, sub.ID)
	require.ErrorIs(t, err, ErrInactiveParent)

	_, err = env.Inventory.ActivateProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrInactiveParent)

	cat, err := env.Catalog.ActivateCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cat.Active)

	s, err := env.Catalog.GetSubcategory(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, s.Active, "reactivating a category leaves subcategories off")

	_, err = env.Inventory.ActivateProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrInactiveParent, "subcategory is still inactive")

	s, err = env.Catalog.ActivateSubcategory(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, s.Active)

	prod, err := env.Inventory.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, prod.Active)

	prod, err = env.Inventory.ActivateProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, prod.Active)
}

func TestUpdateCategoryAndSubcategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, sub := env.catalog(t)
	env.category(t, "Office")
	env.subcategory(t, c.ID, "Plates")

	name := "Office"
	_, err := env.Catalog.UpdateCategory(ctx, c.ID, CatalogPatch{Name: &name})
	require.ErrorIs(t, err, ErrValidation)

	name, desc := "Kitchenware", "pots and mugs"
	cat, err := env.Catalog.UpdateCategory(ctx, c.ID, CatalogPatch{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Kitchenware", cat.Name)
	require.NotNil(t, cat.Description)
	assert.Equal(t, "pots and mugs", *cat.Description)

	name = "Plates"
	_, err = env.Catalog.UpdateSubcategory(ctx, sub.ID, CatalogPatch{Name: &name})
	require.ErrorIs(t, err, ErrValidation)

	name = "Cups"
	s, err := env.Catalog.UpdateSubcategory(ctx, sub.ID, CatalogPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Cups", s.Name)

	_, err = env.Catalog.UpdateCategory(ctx, 999, CatalogPatch{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListCategoriesAndSubcategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, _ := env.catalog(t)
	off := env.category(t, "Office")
	env.subcategory(t, c.ID, "Plates")
	_, err := env.Catalog.DeactivateCategory(ctx, off.ID)
	require.NoError(t, err)

	all, err := env.Catalog.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := env.Catalog.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Kitchen", active[0].Name)

	subs, err := env.Catalog.ListSubcategories(ctx, c.ID, true)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Mugs", subs[0].Name)

	_, err = env.Catalog.ListSubcategories(ctx, 999, true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory_RemovesDescendants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 10)
	ref := "mugs/red.png"
	_, err := env.Inventory.UpdateProduct(ctx, p.ID, ProductPatch{ImageRef: &ref})
	require.NoError(t, err)

	_, err = env.Cart.AddLine(ctx, 7, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.Catalog.DeleteCategory(ctx, c.ID))

	assert.EqualValues(t, 0, env.count(t, &models.Category{}, ""))
	assert.EqualValues(t, 0, env.count(t, &models.Subcategory{}, ""))
	assert.EqualValues(t, 0, env.count(t, &models.Product{}, ""))
	assert.EqualValues(t, 0, env.count(t, &models.CartItem{}, ""))
	assert.Equal(t, []string{"mugs/red.png"}, env.Files.deleted)

	_, ok := env.Index.doc(p.ID)
	assert.False(t, ok)

	require.ErrorIs(t, env.Catalog.DeleteCategory(ctx, c.ID), ErrNotFound)
}

func TestDeleteSubcategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, sub := env.catalog(t)
	plates := env.subcategory(t, c.ID, "Plates")
	env.product(t, sub, "Red Mug", "9.99", 10)
	plate := env.product(t, plates, "Dinner Plate", "4.50", 3)

	require.NoError(t, env.Catalog.DeleteSubcategory(ctx, sub.ID))

	assert.EqualValues(t, 1, env.count(t, &models.Subcategory{}, ""))
	assert.EqualValues(t, 1, env.count(t, &models.Product{}, ""))
	_, err := env.Inventory.GetProduct(ctx, plate.ID)
	require.NoError(t, err)
	assert.Empty(t, env.Files.deleted)
}

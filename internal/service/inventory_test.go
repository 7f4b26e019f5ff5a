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
	"github.com/Skotchmaster/storefront/internal/repo"
)

func TestCreateProduct_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, sub := env.catalog(t)
	other := env.category(t, "Office")
	pens := env.subcategory(t, other.ID, "Pens")
	closed := env.subcategory(t, c.ID, "Closed")
	_, err := env.Catalog.DeactivateSubcategory(ctx, closed.ID)
	require.NoError(t, err)

	valid := ProductInput{
		Name:          "Red Mug",
		Price:         decimal.RequireFromString("9.99"),
		Stock:         5,
		SubcategoryID: sub.ID,
		CategoryID:    c.ID,
	}

	tests := []struct {
		name     string
		mutate   func(in *ProductInput)
		wantErr  error
		inactive bool
	}{
		{"short name", func(in *ProductInput) { in.Name = "ab" }, ErrValidation, false},
		{"negative price", func(in *ProductInput) { in.Price = decimal.RequireFromString("-0.01") }, ErrValidation, false},
		{"negative stock", func(in *ProductInput) { in.Stock = -1 }, ErrValidation, false},
		{"missing subcategory", func(in *ProductInput) { in.SubcategoryID = 999 }, ErrValidation, false},
		{"missing category", func(in *ProductInput) { in.CategoryID = 999 }, ErrValidation, false},
		{"category mismatch", func(in *ProductInput) { in.SubcategoryID = pens.ID }, ErrValidation, false},
		{"inactive subcategory", func(in *ProductInput) { in.SubcategoryID = closed.ID }, ErrInactiveParent, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := env.Inventory.CreateProduct(ctx, in)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.inactive, errors.Is(err, ErrInactiveParent))
		})
	}

	p, err := env.Inventory.CreateProduct(ctx, valid)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, 5, p.Stock)
	types := eventTypes(env.Events, events.TopicCatalog)
	assert.Equal(t, "product_created", types[len(types)-1])
	assert.Equal(t, 1, countOf(types, "product_created"), "failed creates publish nothing")

	d, ok := env.Index.doc(p.ID)
	require.True(t, ok)
	assert.True(t, d.Active)
	assert.True(t, d.InStock)
}

func TestHasStock_IsPure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 5)

	ok, err := env.Inventory.HasStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.Inventory.HasStock(ctx, p.ID, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.Inventory.HasStock(ctx, p.ID, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Inventory.HasStock(ctx, 999, 1)
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 5, env.stock(t, p.ID))
}

func TestDecreaseStock_NeverNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 5)

	require.NoError(t, env.Inventory.DecreaseStock(ctx, p.ID, 3))
	assert.Equal(t, 2, env.stock(t, p.ID))

	err := env.Inventory.DecreaseStock(ctx, p.ID, 3)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, InsufficientStockError{ProductID: p.ID, Requested: 3, Available: 2}, *stockErr)
	assert.Equal(t, 2, env.stock(t, p.ID))

	require.NoError(t, env.Inventory.DecreaseStock(ctx, p.ID, 2))
	assert.Equal(t, 0, env.stock(t, p.ID))

	d, _ := env.Index.doc(p.ID)
	assert.False(t, d.InStock)

	require.ErrorIs(t, env.Inventory.DecreaseStock(ctx, 999, 1), ErrNotFound)
	require.ErrorIs(t, env.Inventory.DecreaseStock(ctx, p.ID, 0), ErrValidation)
}

func TestDecreaseStock_CheckConstraintIsInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 5)

	// stands in for the stock >= 0 constraint firing under a concurrent writer
	require.NoError(t, env.DB.Exec(`
		CREATE TRIGGER products_stock_check BEFORE UPDATE OF stock ON products
		BEGIN SELECT RAISE(ABORT, 'CHECK constraint failed: stock >= 0'); END`).Error)

	err := env.Inventory.DecreaseStock(ctx, p.ID, 2)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 5, env.stock(t, p.ID))
}

func TestIncreaseStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 0)

	require.NoError(t, env.Inventory.IncreaseStock(ctx, p.ID, 1_000_000))
	assert.Equal(t, 1_000_000, env.stock(t, p.ID))

	require.ErrorIs(t, env.Inventory.IncreaseStock(ctx, 999, 1), ErrNotFound)
	require.ErrorIs(t, env.Inventory.IncreaseStock(ctx, p.ID, -1), ErrValidation)

	var changes []string
	for _, m := range env.Events.Messages() {
		if m.Event.Type == "stock_changed" {
			changes = append(changes, m.Key)
		}
	}
	assert.Len(t, changes, 1)
}

func TestStock_RandomSequenceStaysNonNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 4)

	want := 4
	for i, step := range []int{-3, -2, 5, -6, -1, 2, -5, -1} {
		var err error
		if step > 0 {
			err = env.Inventory.IncreaseStock(ctx, p.ID, step)
		} else {
			err = env.Inventory.DecreaseStock(ctx, p.ID, -step)
		}

		if want+step < 0 {
			require.ErrorIs(t, err, ErrInsufficientStock, "step %d", i)
		} else {
			require.NoError(t, err, "step %d", i)
			want += step
		}
		got := env.stock(t, p.ID)
		require.Equal(t, want, got, "step %d", i)
		require.GreaterOrEqual(t, got, 0)
	}
}

func TestUpdateProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 5)

	oldRef := "mugs/old.png"
	_, err := env.Inventory.UpdateProduct(ctx, p.ID, ProductPatch{ImageRef: &oldRef})
	require.NoError(t, err)

	price := decimal.RequireFromString("12.5")
	name := "Crimson Mug"
	newRef := "mugs/new.png"
	got, err := env.Inventory.UpdateProduct(ctx, p.ID, ProductPatch{Name: &name, Price: &price, ImageRef: &newRef})
	require.NoError(t, err)
	assert.Equal(t, "Crimson Mug", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, []string{"mugs/old.png"}, env.Files.deleted)

	negative := decimal.RequireFromString("-1")
	_, err = env.Inventory.UpdateProduct(ctx, p.ID, ProductPatch{Price: &negative})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Inventory.UpdateProduct(ctx, 999, ProductPatch{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVisibleProductAndListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c, sub := env.catalog(t)
	on := env.product(t, sub, "Red Mug", "9.99", 5)
	off := env.product(t, sub, "Old Mug", "1.00", 5)
	_, err := env.Inventory.DeactivateProduct(ctx, off.ID)
	require.NoError(t, err)

	_, err = env.Inventory.VisibleProduct(ctx, on.ID)
	require.NoError(t, err)
	_, err = env.Inventory.VisibleProduct(ctx, off.ID)
	require.ErrorIs(t, err, ErrNotFound)

	total, items, err := env.Inventory.ListProducts(ctx, repo.ProductFilter{CategoryID: c.ID, ActiveOnly: true}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, on.ID, items[0].ID)

	total, _, err = env.Inventory.ListProducts(ctx, repo.ProductFilter{SubcategoryID: sub.ID}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, sub := env.catalog(t)
	p := env.product(t, sub, "Red Mug", "9.99", 5)
	keep := env.product(t, sub, "Blue Mug", "9.99", 5)

	ref := "mugs/red.png"
	_, err := env.Inventory.UpdateProduct(ctx, p.ID, ProductPatch{ImageRef: &ref})
	require.NoError(t, err)
	_, err = env.Cart.AddLine(ctx, 1, p.ID, 2)
	require.NoError(t, err)
	_, err = env.Cart.AddLine(ctx, 1, keep.ID, 1)
	require.NoError(t, err)

	env.Files.fail = true
	require.NoError(t, env.Inventory.DeleteProduct(ctx, p.ID), "image cleanup failure is not propagated")

	_, err = env.Inventory.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, env.count(t, &models.CartItem{}, "user_id = ?", 1))

	require.ErrorIs(t, env.Inventory.DeleteProduct(ctx, p.ID), ErrNotFound)
	assert.Contains(t, eventTypes(env.Events, events.TopicCatalog), "product_deleted")
}

func countOf(items []string, want string) int {
	n := 0
	for _, it := range items {
		if it == want {
			n++
		}
	}
	return n
}

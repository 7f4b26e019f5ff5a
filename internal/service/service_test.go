package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/db"
)

type testEnv struct {
	DB        *gorm.DB
	Repo      *repo.GormRepo
	Events    *events.Memory
	Index     *memIndex
	Files     *memFiles
	Catalog   *CatalogService
	Inventory *InventoryService
	Cart      *CartService
	Orders    *OrderService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// sqlite allows one writer; a single connection also serializes the
	// concurrent tests the way row locks would on postgres
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb, models.All()...))
	return gdb
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := newTestDB(t)
	r := &repo.GormRepo{DB: gdb}
	env := &testEnv{
		DB:     gdb,
		Repo:   r,
		Events: &events.Memory{},
		Index:  newMemIndex(),
		Files:  &memFiles{},
	}
	env.Catalog = &CatalogService{Repo: r, Events: env.Events, Index: env.Index, Files: env.Files}
	env.Inventory = &InventoryService{Repo: r, Events: env.Events, Index: env.Index, Files: env.Files}
	env.Cart = &CartService{Repo: r, Events: env.Events}
	env.Orders = &OrderService{Repo: r, Events: env.Events, Index: env.Index}
	return env
}

func (env *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := env.Catalog.CreateCategory(context.Background(), name, nil)
	require.NoError(t, err)
	return c
}

func (env *testEnv) subcategory(t *testing.T, categoryID uint, name string) *models.Subcategory {
	t.Helper()
	s, err := env.Catalog.CreateSubcategory(context.Background(), categoryID, name, nil)
	require.NoError(t, err)
	return s
}

func (env *testEnv) product(t *testing.T, sub *models.Subcategory, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := env.Inventory.CreateProduct(context.Background(), ProductInput{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		Stock:         stock,
		SubcategoryID: sub.ID,
		CategoryID:    sub.CategoryID,
	})
	require.NoError(t, err)
	return p
}

// catalog seeds one active category with one active subcategory.
func (env *testEnv) catalog(t *testing.T) (*models.Category, *models.Subcategory) {
	t.Helper()
	c := env.category(t, "Kitchen")
	return c, env.subcategory(t, c.ID, "Mugs")
}

func (env *testEnv) stock(t *testing.T, id uint) int {
	t.Helper()
	p, err := env.Repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (env *testEnv) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := env.DB.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

type memIndex struct {
	mu   sync.Mutex
	docs map[uint]search.Document
}

func newMemIndex() *memIndex {
	return &memIndex{docs: map[uint]search.Document{}}
}

func (m *memIndex) IndexProducts(_ context.Context, products []models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		m.docs[p.ID] = search.NewDocument(p)
	}
	return nil
}

func (m *memIndex) DeleteProducts(_ context.Context, ids []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

func (m *memIndex) Search(_ context.Context, q string, _, _ int) (int64, []search.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []search.Document
	for _, d := range m.docs {
		if d.Active && strings.Contains(strings.ToLower(d.Name), strings.ToLower(q)) {
			out = append(out, d)
		}
	}
	return int64(len(out)), out, nil
}

func (m *memIndex) doc(id uint) (search.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}

type memFiles struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (f *memFiles) DeleteStoredFile(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.deleted = append(f.deleted, ref)
	return true
}

func eventTypes(m *events.Memory, topic string) []string {
	var out []string
	for _, msg := range m.Messages() {
		if msg.Topic == topic {
			out = append(out, msg.Event.Type)
		}
	}
	return out
}

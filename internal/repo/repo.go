package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRepo struct {
	DB *gorm.DB
}

// Transaction runs fn against a repo bound to one transaction. Calling it on a
// repo that is already inside a transaction opens a savepoint.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

func (r *GormRepo) forUpdate(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *GormRepo) forShare(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"})
}

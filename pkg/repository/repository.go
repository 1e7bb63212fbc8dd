// Package repository provides a generic gorm-backed store used by the
// domain repositories.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// QueryOption refines a query built from a filter struct.
type QueryOption func(*gorm.DB) *gorm.DB

// OrderBy sorts results by the given clause.
func OrderBy(clause string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause)
	}
}

// Limit caps the number of returned rows.
func Limit(n int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}

// Offset skips the first n rows.
func Offset(n int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(n)
	}
}

// Repository is the generic persistence contract shared by domain stores.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Update(ctx context.Context, resourceID int64, resource any) error
	Delete(ctx context.Context, resourceID int64) error
	Count(ctx context.Context, query *T) (int64, error)
}

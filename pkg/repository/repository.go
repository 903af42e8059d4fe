package repository

import (
	"context"

	"github.com/smallbiznis/meterbill/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a gorm-backed store for one table. Filters are struct
// values; zero fields are ignored, as with gorm's struct conditions.
type Repository[T any] interface {
	// WithTrx binds the store to tx. A nil tx keeps the current handle.
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil without error when nothing matches.
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	// Upsert inserts resource or, on a conflict over keys, overwrites only
	// the listed columns.
	Upsert(ctx context.Context, resource *T, keys []string, columns []string) error
}

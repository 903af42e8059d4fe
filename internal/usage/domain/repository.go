package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	ListSamples(ctx context.Context, tenantID, unitName string, start, end time.Time) ([]UsageSample, error)
	FindCount(ctx context.Context, db *gorm.DB, tenantID, unitName string, ts time.Time) (*MeteringCount, error)
	InsertCount(ctx context.Context, db *gorm.DB, count *MeteringCount) error
	SaveCount(ctx context.Context, db *gorm.DB, count *MeteringCount) error
}

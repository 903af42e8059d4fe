package repository

import (
	"context"
	"time"

	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
	"github.com/smallbiznis/meterbill/pkg/db/option"
	"github.com/smallbiznis/meterbill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	counts repository.Repository[usagedomain.MeteringCount]
}

func Provide(db *gorm.DB) usagedomain.Repository {
	return &repo{counts: repository.ProvideStore[usagedomain.MeteringCount](db)}
}

// NewSamplesProvider exposes the metering count store as a samples provider.
func NewSamplesProvider(r usagedomain.Repository) usagedomain.SamplesProvider {
	return r
}

func (r *repo) ListSamples(ctx context.Context, tenantID, unitName string, start, end time.Time) ([]usagedomain.UsageSample, error) {
	rows, err := r.counts.Find(ctx,
		&usagedomain.MeteringCount{TenantID: tenantID, UnitName: unitName},
		option.WithTimeRange("timestamp", start.UTC(), end.UTC()),
		option.WithOrder("timestamp ASC"),
	)
	if err != nil {
		return nil, err
	}

	samples := make([]usagedomain.UsageSample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, row.Sample())
	}
	return samples, nil
}

func (r *repo) FindCount(ctx context.Context, db *gorm.DB, tenantID, unitName string, ts time.Time) (*usagedomain.MeteringCount, error) {
	return r.counts.WithTrx(db).FindOne(ctx,
		&usagedomain.MeteringCount{TenantID: tenantID, UnitName: unitName, Timestamp: ts.UTC()},
		option.WithForUpdate(),
	)
}

func (r *repo) InsertCount(ctx context.Context, db *gorm.DB, count *usagedomain.MeteringCount) error {
	return r.counts.WithTrx(db).Create(ctx, count)
}

func (r *repo) SaveCount(ctx context.Context, db *gorm.DB, count *usagedomain.MeteringCount) error {
	return r.counts.WithTrx(db).Save(ctx, count)
}

package repository

import (
	"context"

	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"github.com/smallbiznis/meterbill/pkg/db/option"
	"github.com/smallbiznis/meterbill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	tenants   repository.Repository[tenantdomain.Tenant]
	histories repository.Repository[tenantdomain.PlanHistory]
	users     repository.Repository[tenantdomain.User]
}

var userUpdateColumns = []string{"email", "display_name", "updated_at"}

func Provide(db *gorm.DB) tenantdomain.Repository {
	return &repo{
		tenants:   repository.ProvideStore[tenantdomain.Tenant](db),
		histories: repository.ProvideStore[tenantdomain.PlanHistory](db),
		users:     repository.ProvideStore[tenantdomain.User](db),
	}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*tenantdomain.Tenant, error) {
	return r.tenants.WithTrx(db).FindOne(ctx, &tenantdomain.Tenant{ID: id})
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *tenantdomain.Tenant) error {
	return r.tenants.WithTrx(db).Create(ctx, tenant)
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, tenant *tenantdomain.Tenant) error {
	return r.tenants.WithTrx(db).Save(ctx, tenant)
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, tenantID string) ([]*tenantdomain.PlanHistory, error) {
	return r.histories.WithTrx(db).Find(ctx,
		&tenantdomain.PlanHistory{TenantID: tenantID},
		option.WithOrder("applied_at ASC, id ASC"),
	)
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *tenantdomain.PlanHistory) error {
	return r.histories.WithTrx(db).Create(ctx, entry)
}

func (r *repo) ListUsers(ctx context.Context, db *gorm.DB, tenantID string) ([]*tenantdomain.User, error) {
	return r.users.WithTrx(db).Find(ctx,
		&tenantdomain.User{TenantID: tenantID},
		option.WithOrder("created_at ASC, user_id ASC"),
	)
}

func (r *repo) UpsertUser(ctx context.Context, db *gorm.DB, user *tenantdomain.User) error {
	return r.users.WithTrx(db).Upsert(ctx, user, []string{"tenant_id", "user_id"}, userUpdateColumns)
}

package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Tenant, error)
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	Save(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	ListHistory(ctx context.Context, db *gorm.DB, tenantID string) ([]*PlanHistory, error)
	InsertHistory(ctx context.Context, db *gorm.DB, entry *PlanHistory) error
	ListUsers(ctx context.Context, db *gorm.DB, tenantID string) ([]*User, error)
	UpsertUser(ctx context.Context, db *gorm.DB, user *User) error
}

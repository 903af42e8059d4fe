package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"github.com/smallbiznis/meterbill/pkg/db"
	"github.com/smallbiznis/meterbill/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  tenantdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  tenantdomain.Repository
}

func New(p Params) tenantdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req tenantdomain.CreateTenantRequest) (tenantdomain.Tenant, error) {
	id := uuid.NewString()
	if strings.TrimSpace(req.ID) != "" {
		parsed, err := parseTenantID(req.ID)
		if err != nil {
			return tenantdomain.Tenant{}, err
		}
		id = parsed
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return tenantdomain.Tenant{}, tenantdomain.ErrInvalidName
	}

	now := time.Now().UTC()
	tenant := tenantdomain.Tenant{
		ID:                   id,
		Name:                 name,
		CurrentPlanPeriodEnd: utcPtr(req.CurrentPlanPeriodEnd),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Insert(ctx, s.db, &tenant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return tenantdomain.Tenant{}, tenantdomain.ErrTenantExists
		}
		return tenantdomain.Tenant{}, err
	}
	return tenant, nil
}

func (s *Service) Get(ctx context.Context, tenantID string) (tenantdomain.Tenant, error) {
	id, err := parseTenantID(tenantID)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	tenant, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}
	if tenant == nil {
		return tenantdomain.Tenant{}, tenantdomain.ErrTenantNotFound
	}
	return *tenant, nil
}

func (s *Service) GetTenantHistory(ctx context.Context, tenantID string) (billingcycledomain.TenantHistory, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return billingcycledomain.TenantHistory{}, err
	}

	rows, err := s.repo.ListHistory(ctx, s.db, tenant.ID)
	if err != nil {
		return billingcycledomain.TenantHistory{}, err
	}

	history := make([]billingcycledomain.PlanHistoryEntry, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		history = append(history, billingcycledomain.PlanHistoryEntry{
			PlanID:    row.PlanID,
			AppliedAt: row.AppliedAt.UTC(),
			TaxRateID: row.TaxRateID,
		})
	}

	return billingcycledomain.TenantHistory{
		History:          history,
		CurrentPeriodEnd: utcPtr(tenant.CurrentPlanPeriodEnd),
	}, nil
}

func (s *Service) AppendPlanHistory(ctx context.Context, req tenantdomain.AppendPlanHistoryRequest) (tenantdomain.PlanHistory, error) {
	id, err := parseTenantID(req.TenantID)
	if err != nil {
		return tenantdomain.PlanHistory{}, err
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return tenantdomain.PlanHistory{}, tenantdomain.ErrInvalidPlanID
	}
	if req.AppliedAt.IsZero() {
		return tenantdomain.PlanHistory{}, tenantdomain.ErrInvalidAppliedAt
	}

	entry := tenantdomain.PlanHistory{
		ID:        s.genID.Generate(),
		TenantID:  id,
		PlanID:    planID,
		AppliedAt: req.AppliedAt.UTC(),
		TaxRateID: req.TaxRateID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, id); err != nil {
			return err
		}

		tenant, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if tenant == nil {
			return tenantdomain.ErrTenantNotFound
		}

		if err := s.repo.InsertHistory(ctx, tx, &entry); err != nil {
			return err
		}

		if req.CurrentPlanPeriodEnd != nil {
			tenant.CurrentPlanPeriodEnd = utcPtr(req.CurrentPlanPeriodEnd)
			tenant.UpdatedAt = entry.CreatedAt
			return s.repo.Save(ctx, tx, tenant)
		}
		return nil
	})
	if err != nil {
		return tenantdomain.PlanHistory{}, err
	}

	s.log.Info("plan history appended",
		zap.String("tenant_id", id),
		zap.String("plan_id", planID),
		zap.Time("applied_at", entry.AppliedAt),
	)
	return entry, nil
}

// ListUsers returns the members of an existing tenant in join order.
func (s *Service) ListUsers(ctx context.Context, tenantID string) ([]tenantdomain.User, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListUsers(ctx, s.db, tenant.ID)
	if err != nil {
		return nil, err
	}

	users := make([]tenantdomain.User, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			users = append(users, *row)
		}
	}
	return users, nil
}

func (s *Service) UpsertUser(ctx context.Context, req tenantdomain.UpsertUserRequest) (tenantdomain.User, error) {
	tenant, err := s.Get(ctx, req.TenantID)
	if err != nil {
		return tenantdomain.User{}, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return tenantdomain.User{}, tenantdomain.ErrInvalidUserID
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return tenantdomain.User{}, tenantdomain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	user := tenantdomain.User{
		TenantID:    tenant.ID,
		UserID:      userID,
		Email:       addr.Address,
		DisplayName: strings.TrimSpace(req.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.UpsertUser(ctx, s.db, &user); err != nil {
		return tenantdomain.User{}, err
	}
	return user, nil
}

func parseTenantID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", tenantdomain.ErrInvalidTenant
	}
	return parsed.String(), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

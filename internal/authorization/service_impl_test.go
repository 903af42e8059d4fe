package authorization

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tenantID = "7d4c1b55-2f0e-4c38-9f1d-3f4f1a0f6b21"

func newTestService(t *testing.T) Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func actorWith(roles ...string) authdomain.Actor {
	return authdomain.Actor{
		UserID:  "user-1",
		Tenants: []authdomain.TenantRoles{{ID: tenantID, Roles: roles}},
	}
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin := actorWith("admin")
	require.NoError(t, svc.Authorize(ctx, admin, tenantID, ObjectBillingDashboard, ActionBillingDashboardView))
	require.NoError(t, svc.Authorize(ctx, admin, tenantID, ObjectMetering, ActionMeteringUpdate))
	assert.ErrorIs(t, svc.Authorize(ctx, admin, tenantID, ObjectPlan, ActionPlanWrite), ErrForbidden)

	sadmin := actorWith("SAdmin")
	require.NoError(t, svc.Authorize(ctx, sadmin, tenantID, ObjectPlan, ActionPlanWrite))

	viewer := actorWith("viewer")
	assert.ErrorIs(t, svc.Authorize(ctx, viewer, tenantID, ObjectPlanPeriod, ActionPlanPeriodView), ErrForbidden)
}

func TestAuthorizeFollowsTokenRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, actorWith("admin"), tenantID, ObjectPlanPeriod, ActionPlanPeriodView))
	assert.ErrorIs(t, svc.Authorize(ctx, actorWith(), tenantID, ObjectPlanPeriod, ActionPlanPeriodView), ErrForbidden)
}

func TestAuthorizeRequiresMembership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Authorize(ctx, actorWith("admin"), "0b0f9c9e-9d43-4c36-9d51-0c0c3f6f2a11", ObjectBillingDashboard, ActionBillingDashboardView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Actor{}, tenantID, ObjectMetering, ActionMeteringUpdate), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, actorWith("admin"), " ", ObjectMetering, ActionMeteringUpdate), ErrInvalidTenant)
	assert.ErrorIs(t, svc.Authorize(ctx, actorWith("admin"), tenantID, "", ActionMeteringUpdate), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, actorWith("admin"), tenantID, ObjectMetering, ""), ErrInvalidAction)
}

package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectBillingDashboard = "billing_dashboard"
	ObjectPlanPeriod       = "plan_period"
	ObjectMetering         = "metering"
	ObjectPlan             = "plan"
)

const (
	ActionBillingDashboardView = "billing_dashboard.view"
	ActionPlanPeriodView       = "plan_period.view"
	ActionMeteringUpdate       = "metering.update"
	ActionPlanWrite            = "plan.write"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, actor authdomain.Actor, tenantID string, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize checks that actor belongs to tenantID and that one of the roles
// the token grants there allows action on object.
func (s *ServiceImpl) Authorize(ctx context.Context, actor authdomain.Actor, tenantID string, object string, action string) error {
	if strings.TrimSpace(actor.UserID) == "" {
		return ErrInvalidActor
	}
	tenantID = strings.ToLower(strings.TrimSpace(tenantID))
	if tenantID == "" {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roles, member := actor.RolesIn(tenantID)
	if !member {
		s.logDenied(actor, tenantID, object, action, "not a member")
		return ErrForbidden
	}

	subject := actor.Subject()
	domain := fmt.Sprintf("tenant:%s", tenantID)
	if err := s.syncGrouping(subject, roleNames(roles), domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.logDenied(actor, tenantID, object, action, "no role grants action")
		return ErrForbidden
	}
	return nil
}

// syncGrouping makes the subject's role links in domain match roles.
func (s *ServiceImpl) syncGrouping(subject string, roles []string, domain string) error {
	wanted := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		wanted[role] = struct{}{}
	}

	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if _, ok := wanted[rule[1]]; ok {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	for role := range wanted {
		has, err := s.enforcer.HasGroupingPolicy(subject, role, domain)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := s.enforcer.AddGroupingPolicy(subject, role, domain); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceImpl) logDenied(actor authdomain.Actor, tenantID, object, action, reason string) {
	s.log.Info("authorization denied",
		zap.String("subject", actor.Subject()),
		zap.String("tenant_id", tenantID),
		zap.String("object", object),
		zap.String("action", action),
		zap.String("reason", reason),
	)
}

func roleNames(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		out = append(out, "role:"+role)
	}
	return out
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Admin permissions
		{"role:admin", ObjectBillingDashboard, ActionBillingDashboardView},
		{"role:admin", ObjectPlanPeriod, ActionPlanPeriodView},
		{"role:admin", ObjectMetering, ActionMeteringUpdate},

		// Service admin permissions
		{"role:sadmin", ObjectBillingDashboard, ActionBillingDashboardView},
		{"role:sadmin", ObjectPlanPeriod, ActionPlanPeriodView},
		{"role:sadmin", ObjectMetering, ActionMeteringUpdate},
		{"role:sadmin", ObjectPlan, ActionPlanWrite},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

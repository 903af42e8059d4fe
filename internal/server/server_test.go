package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	authservice "github.com/smallbiznis/meterbill/internal/auth/service"
	"github.com/smallbiznis/meterbill/internal/authorization"
	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
	billingdashboarddomain "github.com/smallbiznis/meterbill/internal/billingdashboard/domain"
	"github.com/smallbiznis/meterbill/internal/config"
	"github.com/smallbiznis/meterbill/internal/observability"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"github.com/smallbiznis/meterbill/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testTenantID = "7d4c1b55-2f0e-4c38-9f1d-3f4f1a0f6b21"

type dashboardStub struct {
	got  billingdashboarddomain.DashboardRequest
	resp billingdashboarddomain.DashboardResponse
	err  error
}

func (s *dashboardStub) GetDashboard(_ context.Context, req billingdashboarddomain.DashboardRequest) (billingdashboarddomain.DashboardResponse, error) {
	s.got = req
	return s.resp, s.err
}

type segmenterStub struct {
	segments []billingcycledomain.PlanPeriodSegment
	err      error
}

func (s *segmenterStub) SegmentPeriods(context.Context, []billingcycledomain.PlanHistoryEntry, *time.Time, pricingplandomain.Lookup) ([]billingcycledomain.PlanPeriodSegment, error) {
	return s.segments, s.err
}

func (s *segmenterStub) ListPlanPeriods(context.Context, string) ([]billingcycledomain.PlanPeriodSegment, error) {
	return s.segments, s.err
}

type planStub struct {
	got pricingplandomain.SavePlanRequest
	err error
}

func (s *planStub) GetPlan(_ context.Context, planID string) (*pricingplandomain.PricingPlan, error) {
	return nil, pricingplandomain.ErrPlanNotFound
}

func (s *planStub) SavePlan(_ context.Context, req pricingplandomain.SavePlanRequest) (*pricingplandomain.PricingPlan, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &pricingplandomain.PricingPlan{ID: req.ID, DisplayName: req.DisplayName}, nil
}

type usageStub struct {
	got usagedomain.UpdateCountRequest
	err error
}

func (s *usageStub) UpdateCount(_ context.Context, req usagedomain.UpdateCountRequest) (*usagedomain.CountResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &usagedomain.CountResponse{
		TenantID:  req.TenantID,
		UnitName:  req.UnitName,
		Timestamp: req.Timestamp.Unix(),
		Count:     req.Count,
	}, nil
}

// tenantStub only serves the user directory; other methods are unused here.
type tenantStub struct {
	tenantdomain.Service
	got   string
	users []tenantdomain.User
	err   error
}

func (s *tenantStub) ListUsers(_ context.Context, tenantID string) ([]tenantdomain.User, error) {
	s.got = tenantID
	return s.users, s.err
}

type testServer struct {
	server    *Server
	auth      authdomain.Service
	dashboard *dashboardStub
	segmenter *segmenterStub
	plans     *planStub
	usage     *usageStub
	tenants   *tenantStub
}

func newTestServer(t *testing.T, limiter *ratelimit.MeteringLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	cfg := config.Config{AuthJWTSecret: "test-secret"}
	authsvc, err := authservice.NewService(cfg, zap.NewNop())
	require.NoError(t, err)

	ts := &testServer{
		auth:      authsvc,
		dashboard: &dashboardStub{},
		segmenter: &segmenterStub{},
		plans:     &planStub{},
		usage:     &usageStub{},
		tenants:   &tenantStub{},
	}
	ts.server = NewServer(ServerParams{
		Gin:             NewEngine(observability.Config{}, nil, prometheus.NewRegistry()),
		Cfg:             cfg,
		Authsvc:         authsvc,
		AuthzSvc:        authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		DashboardSvc:    ts.dashboard,
		Segmenter:       ts.segmenter,
		PlanSvc:         ts.plans,
		TenantSvc:       ts.tenants,
		Usagesvc:        ts.usage,
		MeteringLimiter: limiter,
	})
	return ts
}

func (ts *testServer) token(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := ts.auth.IssueToken(authdomain.Actor{
		UserID:  "user-1",
		Email:   "ops@example.com",
		Tenants: []authdomain.TenantRoles{{ID: testTenantID, Roles: roles}},
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestUserInfoReturnsActor(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/userinfo", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/userinfo", ts.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var actor authdomain.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actor))
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, "ops@example.com", actor.Email)
	require.Len(t, actor.Tenants, 1)
	assert.Equal(t, testTenantID, actor.Tenants[0].ID)
	assert.Equal(t, []string{"admin"}, actor.Tenants[0].Roles)
}

func TestListTenantUsers(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.tenants.users = []tenantdomain.User{
		{TenantID: testTenantID, UserID: "user-1", Email: "ops@example.com"},
		{TenantID: testTenantID, UserID: "user-2", Email: "dev@example.com"},
	}

	rec := ts.do(http.MethodGet, "/users", ts.token(t), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, testTenantID, ts.tenants.got)

	var users []tenantdomain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "dev@example.com", users[1].Email)
}

func TestListTenantUsersWithoutTenants(t *testing.T) {
	ts := newTestServer(t, nil)
	token, err := ts.auth.IssueToken(authdomain.Actor{UserID: "user-1", Email: "ops@example.com"}, time.Hour)
	require.NoError(t, err)

	rec := ts.do(http.MethodGet, "/users", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.tenants.got)
}

func TestListTenantUsersMissingTenant(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.tenants.err = tenantdomain.ErrTenantNotFound

	rec := ts.do(http.MethodGet, "/users", ts.token(t, "admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/billing/dashboard?tenant_id=" + testTenantID

	rec := ts.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = ts.do(http.MethodGet, path, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardForbiddenWithoutRole(t *testing.T) {
	ts := newTestServer(t, nil)
	path := fmt.Sprintf("/billing/dashboard?tenant_id=%s&plan_id=p1&period_start=0&period_end=10", testTenantID)

	rec := ts.do(http.MethodGet, path, ts.token(t, "viewer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	other := "/billing/dashboard?tenant_id=0b0f1d7e-8f59-4e0a-9c38-5a9f7a3f2c11&plan_id=p1&period_start=0&period_end=10"
	rec = ts.do(http.MethodGet, other, ts.token(t, "admin"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardSuccess(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.dashboard.resp = billingdashboarddomain.DashboardResponse{
		Summary: billingdashboarddomain.DashboardSummary{
			TotalByCurrency:    []billingdashboarddomain.CurrencyTotal{{Currency: "USD", TotalAmount: decimal.RequireFromString("12.5")}},
			TotalMeteringUnits: 1,
		},
		MeteringUnitBillings: []billingdashboarddomain.BillingLineItem{},
		PricingPlanInfo:      billingdashboarddomain.PricingPlanInfo{PlanID: "p1", DisplayName: "Standard"},
	}

	path := fmt.Sprintf("/billing/dashboard?tenant_id=%s&plan_id=p1&period_start=1000&period_end=1999", testTenantID)
	rec := ts.do(http.MethodGet, path, ts.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, testTenantID, ts.dashboard.got.TenantID)
	assert.Equal(t, "p1", ts.dashboard.got.PlanID)
	assert.Equal(t, int64(1000), ts.dashboard.got.PeriodStart.Unix())
	assert.Equal(t, int64(1999), ts.dashboard.got.PeriodEnd.Unix())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total_metering_units"])
	totals := summary["total_by_currency"].([]any)
	assert.Equal(t, "12.5", totals[0].(map[string]any)["total_amount"])
	assert.Equal(t, "p1", body["pricing_plan_info"].(map[string]any)["plan_id"])
}

func TestDashboardValidatesQuery(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "admin")

	rec := ts.do(http.MethodGet, "/billing/dashboard?plan_id=p1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tenant_id", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(http.MethodGet, "/billing/dashboard?tenant_id="+testTenantID+"&plan_id=p1&period_end=5", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "period_start", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(http.MethodGet, "/billing/dashboard?tenant_id="+testTenantID+"&plan_id=p1&period_start=abc&period_end=5", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid period", billingdashboarddomain.ErrInvalidPeriod, http.StatusBadRequest, "invalid_period"},
		{"missing tenant", tenantdomain.ErrTenantNotFound, http.StatusNotFound, ""},
		{"missing plan", fmt.Errorf("get plan: %w", pricingplandomain.ErrPlanNotFound), http.StatusNotFound, ""},
		{"broken tiers", fmt.Errorf("menu 0 unit 1: %w", pricingplandomain.ErrInvalidPlan), http.StatusBadRequest, "invalid_plan"},
		{"internal", fmt.Errorf("db down"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.dashboard.err = tc.err
			path := fmt.Sprintf("/billing/dashboard?tenant_id=%s&plan_id=p1&period_start=10&period_end=5", testTenantID)

			rec := ts.do(http.MethodGet, path, ts.token(t, "admin"), nil)
			assert.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, rec).Errors[0].Code)
			}
		})
	}
}

func TestListPlanPeriods(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.segmenter.segments = []billingcycledomain.PlanPeriodSegment{
		{Label: "b", PlanID: "p2", Start: time.Unix(1000, 0), End: time.Unix(1999, 0)},
		{Label: "a", PlanID: "p1", Start: time.Unix(0, 0), End: time.Unix(999, 0)},
	}

	rec := ts.do(http.MethodGet, "/tenant/plan_periods?tenant_id="+testTenantID, ts.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"label":"b","plan_id":"p2","start":1000,"end":1999},
		{"label":"a","plan_id":"p1","start":0,"end":999}
	]`, rec.Body.String())
}

func TestListPlanPeriodsEmpty(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodGet, "/tenant/plan_periods?tenant_id="+testTenantID, ts.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateMeteringCount(t *testing.T) {
	ts := newTestServer(t, nil)
	path := fmt.Sprintf("/metering/%s/api_calls/1709251200", testTenantID)

	rec := ts.do(http.MethodPost, path, ts.token(t, "admin"), map[string]any{"method": "add", "count": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, testTenantID, ts.usage.got.TenantID)
	assert.Equal(t, "api_calls", ts.usage.got.UnitName)
	assert.Equal(t, usagedomain.UpdateMethodAdd, ts.usage.got.Method)
	assert.Equal(t, int64(5), ts.usage.got.Count)
	assert.Equal(t, int64(1709251200), ts.usage.got.Timestamp.Unix())

	var resp usagedomain.CountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Count)
}

func TestUpdateMeteringCountValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "admin")

	rec := ts.do(http.MethodPost, fmt.Sprintf("/metering/%s/api_calls/1709251200", testTenantID), token, map[string]any{"method": "add"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "count", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(http.MethodPost, fmt.Sprintf("/metering/%s/api_calls/yesterday", testTenantID), token, map[string]any{"method": "add", "count": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ts", decodeError(t, rec).Errors[0].Field)

	ts.usage.err = usagedomain.ErrInvalidValue
	rec = ts.do(http.MethodPost, fmt.Sprintf("/metering/%s/api_calls/1709251200", testTenantID), token, map[string]any{"method": "sub", "count": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_value", decodeError(t, rec).Errors[0].Code)

	ts.usage.err = usagedomain.ErrCountLocked
	rec = ts.do(http.MethodPost, fmt.Sprintf("/metering/%s/api_calls/1709251200", testTenantID), token, map[string]any{"method": "add", "count": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateMeteringCountRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewMeteringLimiter(config.Config{RateLimit: config.RateLimitConfig{
		Enabled:                true,
		MeteringTenantRate:     0.01,
		MeteringTenantBurst:    1,
		MeteringLockTTLSeconds: 5,
	}}, client)
	require.NoError(t, err)

	ts := newTestServer(t, limiter)
	token := ts.token(t, "admin")
	path := fmt.Sprintf("/metering/%s/api_calls/1709251200", testTenantID)
	body := map[string]any{"method": "add", "count": 1}

	rec := ts.do(http.MethodPost, path, token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = ts.do(http.MethodPost, path, token, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEqual(t, "0", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
}

func TestSavePlanRequiresSuperAdmin(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/plans/standard?tenant_id=" + testTenantID
	body := map[string]any{"display_name": "Standard", "menus": []any{}}

	rec := ts.do(http.MethodPut, path, ts.token(t, "admin"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPut, path, ts.token(t, "sadmin"), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "standard", ts.plans.got.ID)
	assert.Equal(t, "Standard", ts.plans.got.DisplayName)

	var plan pricingplandomain.PricingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, "standard", plan.ID)
}

func TestSavePlanRejectsInvalidPlan(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.plans.err = fmt.Errorf("menu 0 unit 0: %w", pricingplandomain.ErrInvalidReference)

	rec := ts.do(http.MethodPut, "/plans/standard?tenant_id="+testTenantID, ts.token(t, "sadmin"), map[string]any{"display_name": "Standard"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_reference", decodeError(t, rec).Errors[0].Code)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	token, ok = bearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}

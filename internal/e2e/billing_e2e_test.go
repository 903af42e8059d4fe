package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	march1  = int64(1709251200)
	march2  = int64(1709337600)
	april1  = int64(1711929600)
	march31 = int64(1711929599)
)

type dashboardBody struct {
	Summary struct {
		TotalByCurrency []struct {
			Currency    string `json:"currency"`
			TotalAmount string `json:"total_amount"`
		} `json:"total_by_currency"`
		TotalMeteringUnits int `json:"total_metering_units"`
	} `json:"summary"`
	MeteringUnitBillings []struct {
		UnitName     string `json:"metering_unit_name"`
		MenuName     string `json:"function_menu_name"`
		PeriodCount  string `json:"period_count"`
		Currency     string `json:"currency"`
		PeriodAmount string `json:"period_amount"`
	} `json:"metering_unit_billings"`
	PricingPlanInfo struct {
		PlanID      string `json:"plan_id"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
	} `json:"pricing_plan_info"`
}

type planPeriodBody struct {
	Label  string `json:"label"`
	PlanID string `json:"plan_id"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
}

func assertDecimal(t *testing.T, want, got string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(got)), "want %s, got %s", want, got)
}

func updateCount(t *testing.T, token, unit string, ts int64, method string, count int64) *http.Response {
	t.Helper()
	path := fmt.Sprintf("/metering/%s/%s/%d", tenantID, unit, ts)
	resp, _ := doJSON(t, http.MethodPost, path, token, map[string]any{"method": method, "count": count})
	return resp
}

func TestHealth(t *testing.T) {
	resp, _ := doJSON(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	resp, body := doJSON(t, http.MethodGet, "/tenant/plan_periods?tenant_id="+tenantID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)
}

func TestPlanPeriodsFollowSeededHistory(t *testing.T) {
	token := issueToken(t, "admin")

	resp, body := doJSON(t, http.MethodGet, "/tenant/plan_periods?tenant_id="+tenantID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var periods []planPeriodBody
	require.NoError(t, json.Unmarshal(body, &periods))
	require.Len(t, periods, 4)

	want := []planPeriodBody{
		{Label: "2024-04-01 00:00:00 ~ 2024-04-30 23:59:59", PlanID: "growth", Start: april1, End: 1714521599},
		{Label: "2024-03-01 00:00:00 ~ 2024-03-31 23:59:59", PlanID: "growth", Start: march1, End: march31},
		{Label: "2024-02-01 00:00:00 ~ 2024-02-29 23:59:59", PlanID: "standard", Start: 1706745600, End: march1 - 1},
		{Label: "2024-01-01 00:00:00 ~ 2024-01-31 23:59:59", PlanID: "standard", Start: 1704067200, End: 1706745599},
	}
	assert.Equal(t, want, periods)
}

func TestMeteringFlowsIntoDashboard(t *testing.T) {
	admin := issueToken(t, "admin")

	require.Equal(t, http.StatusOK, updateCount(t, admin, "api_calls", march1, "add", 5).StatusCode)
	require.Equal(t, http.StatusOK, updateCount(t, admin, "api_calls", march1, "add", 3).StatusCode)
	upper := fmt.Sprintf("/metering/%s/api_calls/%d", strings.ToUpper(tenantID), march2)
	resp, body := doJSON(t, http.MethodPost, upper, admin, map[string]any{"method": "direct", "count": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, http.StatusOK, updateCount(t, admin, "api_calls", april1, "add", 100).StatusCode)
	require.Equal(t, http.StatusOK, updateCount(t, admin, "storage_gb", march1, "direct", 12).StatusCode)
	require.Equal(t, http.StatusOK, updateCount(t, admin, "storage_gb", march2, "direct", 4).StatusCode)

	assert.Equal(t, http.StatusBadRequest, updateCount(t, admin, "storage_gb", march2, "sub", 10).StatusCode)

	path := fmt.Sprintf("/billing/dashboard?tenant_id=%s&plan_id=growth&period_start=%d&period_end=%d", tenantID, march1, march31)
	resp, body = doJSON(t, http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var dashboard dashboardBody
	require.NoError(t, json.Unmarshal(body, &dashboard))

	assert.Equal(t, "growth", dashboard.PricingPlanInfo.PlanID)
	assert.Equal(t, "Growth", dashboard.PricingPlanInfo.DisplayName)
	assert.Equal(t, 3, dashboard.Summary.TotalMeteringUnits)

	amounts := map[string]string{}
	counts := map[string]string{}
	for _, item := range dashboard.MeteringUnitBillings {
		amounts[item.UnitName] = item.PeriodAmount
		counts[item.UnitName] = item.PeriodCount
	}
	require.Len(t, amounts, 3)
	assertDecimal(t, "10", counts["api_calls"])
	assertDecimal(t, "5", amounts["api_calls"])
	assertDecimal(t, "12", counts["storage_gb"])
	assertDecimal(t, "11", amounts["storage_gb"])
	assertDecimal(t, "10", amounts["seats"])

	totals := map[string]string{}
	for _, total := range dashboard.Summary.TotalByCurrency {
		totals[total.Currency] = total.TotalAmount
	}
	require.Len(t, totals, 2)
	assertDecimal(t, "15", totals["USD"])
	assertDecimal(t, "11", totals["EUR"])
}

func TestPlanUpdateRequiresSuperAdmin(t *testing.T) {
	payload := map[string]any{
		"display_name": "Starter",
		"menus": []map[string]any{{
			"display_name": "API",
			"units": []map[string]any{{
				"metering_unit_name": "exports",
				"type":               "usage",
				"unit_amount":        2,
				"currency":           "USD",
			}},
		}},
	}

	admin := issueToken(t, "admin")
	resp, _ := doJSON(t, http.MethodPut, "/plans/starter?tenant_id="+tenantID, admin, payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPut, "/plans/starter?tenant_id="+tenantID, issueToken(t, "sadmin"), payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	require.Equal(t, http.StatusOK, updateCount(t, admin, "exports", april1, "add", 100).StatusCode)

	path := fmt.Sprintf("/billing/dashboard?tenant_id=%s&plan_id=starter&period_start=%d&period_end=%d", tenantID, april1, april1+86399)
	resp, body = doJSON(t, http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var dashboard dashboardBody
	require.NoError(t, json.Unmarshal(body, &dashboard))
	assert.Equal(t, "Starter", dashboard.PricingPlanInfo.DisplayName)
	require.Len(t, dashboard.MeteringUnitBillings, 1)
	assertDecimal(t, "200", dashboard.MeteringUnitBillings[0].PeriodAmount)
}

func TestUserInfoAndTenantUsers(t *testing.T) {
	token := issueToken(t, "admin")

	resp, body := doJSON(t, http.MethodGet, "/userinfo", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), tenantID)

	resp, body = doJSON(t, http.MethodGet, "/users", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var users []struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(body, &users))
	emails := make([]string, 0, len(users))
	for _, user := range users {
		emails = append(emails, user.Email)
	}
	assert.ElementsMatch(t, []string{"ops@example.com", "dev@example.com"}, emails)
}

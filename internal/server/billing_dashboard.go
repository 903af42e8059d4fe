package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingdashboarddomain "github.com/smallbiznis/meterbill/internal/billingdashboard/domain"
	"github.com/smallbiznis/meterbill/internal/cloudmetrics"
)

func (s *Server) GetBillingDashboard(c *gin.Context) {
	tenantID := tenantIDFromContext(c)

	planID, err := requiredString("plan_id", c.Query("plan_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	start, err := parseUnixSeconds("period_start", c.Query("period_start"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseUnixSeconds("period_end", c.Query("period_end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.dashboardSvc.GetDashboard(c.Request.Context(), billingdashboarddomain.DashboardRequest{
		TenantID:    tenantID,
		PlanID:      planID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		recordEngineError(tenantID, "billing_dashboard", err)
		AbortWithError(c, err)
		return
	}

	cloudmetrics.RecordDashboardServed(tenantID)
	c.JSON(http.StatusOK, resp)
}

// recordEngineError counts failures that map to a server error.
func recordEngineError(tenantID, operation string, err error) {
	if status, _ := mapError(err); status >= http.StatusInternalServerError {
		cloudmetrics.RecordEngineError(tenantID, operation)
	}
}

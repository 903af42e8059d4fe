package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/meterbill/internal/cloudmetrics"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

type savePlanRequest struct {
	DisplayName string                         `json:"display_name"`
	Description string                         `json:"description"`
	Menus       []pricingplandomain.MenuRecord `json:"menus"`
}

func (s *Server) SavePlan(c *gin.Context) {
	planID, err := requiredString("plan_id", c.Param("plan_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req savePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan, err := s.planSvc.SavePlan(c.Request.Context(), pricingplandomain.SavePlanRequest{
		ID:          planID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Menus:       req.Menus,
	})
	if err != nil {
		recordEngineError(tenantIDFromContext(c), "plan_save", err)
		AbortWithError(c, err)
		return
	}

	cloudmetrics.RecordPlanSaved()
	c.JSON(http.StatusOK, plan)
}

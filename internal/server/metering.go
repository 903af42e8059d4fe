package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/meterbill/internal/cloudmetrics"
	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
)

type updateMeteringCountRequest struct {
	Method usagedomain.UpdateMethod `json:"method"`
	Count  *int64                   `json:"count"`
}

func (s *Server) UpdateMeteringCount(c *gin.Context) {
	tenantID := tenantIDFromContext(c)

	unit, err := requiredString("unit", c.Param("unit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ts, err := parseUnixSeconds("ts", c.Param("ts"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateMeteringCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Count == nil {
		AbortWithError(c, newValidationError("count", "required", "count is required"))
		return
	}

	resp, err := s.usagesvc.UpdateCount(c.Request.Context(), usagedomain.UpdateCountRequest{
		TenantID:  tenantID,
		UnitName:  unit,
		Timestamp: ts,
		Method:    req.Method,
		Count:     *req.Count,
	})
	if err != nil {
		recordEngineError(tenantID, "metering_update", err)
		AbortWithError(c, err)
		return
	}

	cloudmetrics.RecordMeteringUpdate(tenantID, unit)
	c.JSON(http.StatusOK, resp)
}

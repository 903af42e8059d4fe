package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/meterbill/internal/cloudmetrics"
)

type planPeriodResponse struct {
	Label  string `json:"label"`
	PlanID string `json:"plan_id"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
}

func (s *Server) ListPlanPeriods(c *gin.Context) {
	tenantID := tenantIDFromContext(c)

	segments, err := s.segmenter.ListPlanPeriods(c.Request.Context(), tenantID)
	if err != nil {
		recordEngineError(tenantID, "plan_periods", err)
		AbortWithError(c, err)
		return
	}

	resp := make([]planPeriodResponse, 0, len(segments))
	for _, segment := range segments {
		resp = append(resp, planPeriodResponse{
			Label:  segment.Label,
			PlanID: segment.PlanID,
			Start:  segment.Start.Unix(),
			End:    segment.End.Unix(),
		})
	}

	cloudmetrics.RecordPlanPeriodQuery(tenantID)
	c.JSON(http.StatusOK, resp)
}

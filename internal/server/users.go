package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/meterbill/internal/observability/context"
)

// GetUserInfo echoes the authenticated actor.
func (s *Server) GetUserInfo(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, actor)
}

// ListTenantUsers lists the members of the caller's first tenant.
func (s *Server) ListTenantUsers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if len(actor.Tenants) == 0 {
		AbortWithError(c, newValidationError("tenants", "required", "no tenants found for the user"))
		return
	}

	tenantID := actor.Tenants[0].ID
	ctx := obscontext.WithTenantID(c.Request.Context(), tenantID)
	c.Request = c.Request.WithContext(ctx)

	users, err := s.tenantSvc.ListUsers(ctx, tenantID)
	if err != nil {
		recordEngineError(tenantID, "tenant_users", err)
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

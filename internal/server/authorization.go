package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/meterbill/internal/observability/context"
)

const contextTenantIDKey = "tenant_id"

// tenantResolver extracts the tenant a request operates on.
type tenantResolver func(c *gin.Context) string

func queryTenantID(c *gin.Context) string {
	return strings.TrimSpace(c.Query("tenant_id"))
}

func paramTenantID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("tenant_id"))
}

func (s *Server) authorizeTenantAction(resolve tenantResolver, object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := resolve(c)
		if tenantID == "" {
			AbortWithError(c, newValidationError("tenant_id", "required", "tenant_id is required"))
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}

		ctx := obscontext.WithTenantID(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)
		if err := s.authzSvc.Authorize(ctx, actor, tenantID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextTenantIDKey, tenantID)
		c.Next()
	}
}

func tenantIDFromContext(c *gin.Context) string {
	return c.GetString(contextTenantIDKey)
}

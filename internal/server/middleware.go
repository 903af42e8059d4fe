package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	obscontext "github.com/smallbiznis/meterbill/internal/observability/context"
)

const (
	headerAuthorization = "Authorization"
	contextActorKey     = "actor"
	bearerPrefix        = "bearer "
)

// AuthRequired verifies the bearer token and stores the actor on the request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(headerAuthorization))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextActorKey, actor)
		ctx := obscontext.WithActor(c.Request.Context(), "user", actor.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func actorFromContext(c *gin.Context) (authdomain.Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return authdomain.Actor{}, false
	}
	actor, ok := value.(authdomain.Actor)
	return actor, ok
}

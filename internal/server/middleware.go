package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/edubill/internal/authorization"
	obscontext "github.com/smallbiznis/edubill/internal/observability/context"
	"github.com/smallbiznis/edubill/internal/orgcontext"
)

// Identity headers are set by the LMS gateway after it authenticates the user.
const (
	HeaderOrg      = "X-Org-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	contextActorKey = "actor"
)

// OrgContext resolves the tenant from X-Org-ID and stores it on the request context.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" {
			AbortWithError(c, ErrOrgRequired)
			return
		}
		orgID, err := orgcontext.ParseOrgID(raw)
		if err != nil {
			AbortWithError(c, newValidationError("organization", "invalid_organization", "invalid X-Org-ID"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorContext reads the caller identity forwarded by the gateway.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := authorization.Actor{
			ID:   strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Role: strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))),
		}
		if actor.Role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "user", actor.ID))
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (authorization.Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return authorization.Actor{}, false
	}
	actor, ok := value.(authorization.Actor)
	return actor, ok
}

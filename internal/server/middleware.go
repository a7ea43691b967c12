package server

import (
	"fmt"
	"net/http"
	"time"

	"auction-house/internal/access"
	"auction-house/internal/auctionerrors"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// Actor identity headers. Authentication proper is out of scope; the
// gateway in front of this service is trusted to set them.
const (
	actorIDHeader   = "X-Actor-ID"
	actorNameHeader = "X-Actor-Name"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// IdentityMiddleware copies the actor headers into the request context.
func IdentityMiddleware(c *gin.Context) {
	c.Set(helpers.ActorIDKey, c.GetHeader(actorIDHeader))
	c.Set(helpers.ActorNameKey, c.GetHeader(actorNameHeader))
	c.Next()
}

// RequireActor rejects requests that carry no actor identity.
func RequireActor(c *gin.Context) {
	if helpers.ActorID(c) == "" {
		utils.JSONError(c, http.StatusUnauthorized,
			fmt.Errorf("missing %s header: %w", actorIDHeader, auctionerrors.ErrMissingField), "actor identity required")
		c.Abort()
		return
	}
	c.Next()
}

// RequireVerified admits admins and verified users only.
func RequireVerified(gate *access.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := helpers.ActorID(c)
		if actorID == "" {
			utils.JSONError(c, http.StatusUnauthorized,
				fmt.Errorf("missing %s header: %w", actorIDHeader, auctionerrors.ErrMissingField), "actor identity required")
			c.Abort()
			return
		}
		if !gate.IsEligible(actorID) {
			utils.JSONError(c, http.StatusForbidden,
				fmt.Errorf("actor %s: %w", actorID, auctionerrors.ErrNotVerified), "verification required")
			utils.Warn("unverified actor rejected", map[string]any{
				"actor_id": actorID,
				"path":     c.Request.URL.Path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin admits allow-listed admins only.
func RequireAdmin(gate *access.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := helpers.ActorID(c)
		if !gate.IsAdmin(actorID) {
			utils.JSONError(c, http.StatusForbidden,
				fmt.Errorf("actor %q: %w", actorID, auctionerrors.ErrAdminOnly), "admin access required")
			utils.Warn("non-admin actor rejected", map[string]any{
				"actor_id": actorID,
				"path":     c.Request.URL.Path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/service"
)

const identityKey = "identity"

// GuardMiddleware applies the access class of a route. For token-required routes the
// identity bound to the token is stored in the gin context.
func GuardMiddleware(guard *service.Guard, access core.Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := guard.Authorize(c.Request.Context(), access, c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if identity != nil {
			c.Set(identityKey, *identity)
		}

		c.Next()
	}
}

// IdentityFrom returns the identity bound by GuardMiddleware
func IdentityFrom(c *gin.Context) (core.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return core.Identity{}, false
	}
	identity, ok := v.(core.Identity)
	return identity, ok
}

// RequestLogger logs one line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/gatekeeper/service"
)

// SetupRouter registers every route of the table behind the guard for its access class
func SetupRouter(handlers *Handlers, guard *service.Guard, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if logger != nil {
		router.Use(RequestLogger(logger))
	}

	for _, route := range handlers.Routes() {
		router.Handle(route.Method, route.Path, GuardMiddleware(guard, route.Access), route.Handler)
	}

	return router
}

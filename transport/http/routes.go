package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/gatekeeper/core"
)

// Route is one entry of the route table
type Route struct {
	Method  string
	Path    string
	Access  core.Access
	Handler gin.HandlerFunc
}

// Routes is the static route table. Every operation is classified here; a route
// that leaves Access unset requires a token.
func (h *Handlers) Routes() []Route {
	return []Route{
		{http.MethodGet, "/user/captchaImage", core.AccessPublic, h.CaptchaImage},
		{http.MethodPost, "/user/login", core.AccessCredentials, h.Login},
		{http.MethodPost, "/user/logout", core.AccessPublic, h.Logout},
		{http.MethodGet, "/user/auth/me", core.AccessToken, h.Me},
		{http.MethodPost, "/user/register", core.AccessToken, h.Register},
		{http.MethodGet, "/user/list", core.AccessToken, h.List},
		{http.MethodGet, "/metrics", core.AccessPublic, h.Metrics},
		{http.MethodGet, "/healthz", core.AccessPublic, h.Health},
	}
}

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers contains the HTTP handlers of the service
type Handlers struct {
	auth    *service.AuthService
	captcha *service.CaptchaService
	users   *service.UserService
	metrics http.Handler
	logger  *slog.Logger
}

// NewHandlers creates the handlers. gatherer backs the /metrics endpoint.
func NewHandlers(auth *service.AuthService, captcha *service.CaptchaService, users *service.UserService, gatherer prometheus.Gatherer, logger *slog.Logger) *Handlers {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		auth:    auth,
		captcha: captcha,
		users:   users,
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		logger:  logger,
	}
}

// CaptchaImage issues a new challenge
func (h *Handlers) CaptchaImage(c *gin.Context) {
	image, err := h.captcha.Issue(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

type loginRequest struct {
	Username    string `json:"username" form:"username"`
	Password    string `json:"password" form:"password"`
	CaptchaID   string `json:"captchaId" form:"captchaId"`
	CaptchaCode string `json:"captchaCode" form:"captchaCode"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      core.Profile `json:"user"`
}

// Login handles the login request, sent as JSON or as a urlencoded form. The captcha
// id and code may also be sent as X-Captcha-Id and X-Captcha-Code headers.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.CaptchaID == "" {
		req.CaptchaID = c.GetHeader("X-Captcha-Id")
	}
	if req.CaptchaCode == "" {
		req.CaptchaCode = c.GetHeader("X-Captcha-Code")
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginRequest{
		Username:      req.Username,
		Password:      req.Password,
		CaptchaID:     req.CaptchaID,
		CaptchaAnswer: req.CaptchaCode,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token.Value,
		TokenType: "Bearer",
		ExpiresAt: result.Token.Session.ExpiresAt,
		User:      result.Profile,
	})
}

// Logout revokes the bearer token of the request, if there is one
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), c.GetHeader("Authorization")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the profile of the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.writeError(c, core.ErrUnauthorized)
		return
	}

	profile, err := h.auth.WhoAmI(c.Request.Context(), identity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type registerRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
}

// Register creates a user on behalf of the authenticated user
func (h *Handlers) Register(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.writeError(c, core.ErrUnauthorized)
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.users.Register(c.Request.Context(), identity, core.NewUser{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Roles:       req.Roles,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// List returns a page of users. Unparseable page and limit values fall back to the defaults.
func (h *Handlers) List(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.writeError(c, core.ErrUnauthorized)
		return
	}

	page, err := h.users.List(c.Request.Context(), identity, core.ListQuery{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Username: c.Query("username"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Metrics serves the prometheus exposition
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Health reports that the process is serving
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// queryInt reads an integer query parameter, 0 when absent or invalid
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// writeError maps service errors to status codes. Internal details are logged, never returned.
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrCaptchaInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "captcha invalid"})
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, core.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, core.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

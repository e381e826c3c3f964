package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goitProjects/SBC-backend/internal/auth"
	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"github.com/goitProjects/SBC-backend/pkg/logger"
	"github.com/goitProjects/SBC-backend/pkg/middleware"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,min=3,max=254"`
	Password string `json:"password" binding:"required,min=8"`
}

type RefreshRequest struct {
	SessionID string `json:"sid" binding:"required,objectid"`
}

type ResetRequest struct {
	Email string `json:"email" binding:"required,min=3,max=254"`
}

type NewPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg *config.Config
	svc *auth.Service
}

func NewAuthHandler(cfg *config.Config, svc *auth.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, svc: svc}
}

// Register routes under /auth. authorize guards logout.
func (h *AuthHandler) Register(rg *gin.RouterGroup, authorize gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", authorize, h.Logout)
	a.GET("/password/requestReset", h.RequestReset)
	a.POST("/password/reset", h.ResetPassword)
}

// fail writes err as {"message": ...}. Unclassified errors are logged.
func fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	middleware.Abort(c, err)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Refresh takes the refresh token from the Authorization header and the
// current session id from the body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}
	raw, ok := middleware.BearerToken(c)
	if !ok {
		fail(c, apperr.ErrNoToken)
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), req.SessionID, raw)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestReset answers 204 whether or not the account exists.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email, h.baseURL(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req NewPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// baseURL is the configured public URL, or the scheme and host the request
// arrived on.
func (h *AuthHandler) baseURL(c *gin.Context) string {
	if h.cfg != nil && h.cfg.Server.PublicURL != "" {
		return strings.TrimRight(h.cfg.Server.PublicURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host
}

package api

import (
	"context"
	"net/http"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/service"
	"yatube/pkg/logger"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	flashKey   = "flash"
	feedPrefix = "/ws/"
)

// pages renders full HTML pages with the values every template expects.
type pages struct {
	sessions *scs.SessionManager
}

func (p pages) html(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if user := middleware.CurrentUser(c); user != nil {
		data["User"] = user
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = service.FormErrors{}
	}
	if flash := p.popFlash(c); flash != "" {
		data["Flash"] = flash
	}
	c.HTML(status, name, data)
}

// Feed requests are served outside the session middleware.
func (p pages) hasSession(c *gin.Context) bool {
	return p.sessions != nil && !strings.HasPrefix(c.Request.URL.Path, feedPrefix)
}

func (p pages) flash(c *gin.Context, message string) {
	if p.hasSession(c) {
		p.sessions.Put(c.Request.Context(), flashKey, message)
	}
}

func (p pages) popFlash(c *gin.Context) string {
	if !p.hasSession(c) {
		return ""
	}
	return p.sessions.PopString(c.Request.Context(), flashKey)
}

// renewSession rotates the session token on login and logout.
func (p pages) renewSession(ctx context.Context) {
	if p.sessions == nil {
		return
	}
	if err := p.sessions.RenewToken(ctx); err != nil {
		logger.L.Warn("Failed to renew session token", zap.Error(err))
	}
}

func (p pages) notFound(c *gin.Context) {
	p.html(c, http.StatusNotFound, "core/404.html", gin.H{"Path": c.Request.URL.Path})
	c.Abort()
}

func (p pages) serverError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		logger.L.Error("Internal server error",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	p.html(c, http.StatusInternalServerError, "core/500.html", nil)
	c.Abort()
}

func (p pages) panicked(c *gin.Context) {
	p.serverError(c, nil)
}

func (p pages) tooManyRequests(c *gin.Context) {
	p.html(c, http.StatusTooManyRequests, "core/429.html", nil)
}

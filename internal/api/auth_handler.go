package api

import (
	"errors"
	"net/http"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/service"
	"yatube/pkg/config"
	"yatube/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves the signup, login and logout pages.
type AuthHandler struct {
	pages
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService, p pages) *AuthHandler {
	return &AuthHandler{
		pages:       p,
		authService: authService,
	}
}

func (h *AuthHandler) SignupForm(c *gin.Context) {
	h.html(c, http.StatusOK, "users/signup.html", gin.H{"Form": service.RegisterRequest{}})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderSignup(c, req, formErrors(err))
		return
	}

	user, err := h.authService.Register(req)
	if err != nil {
		errs := service.FormErrors{}
		var fe service.FormErrors
		switch {
		case errors.As(err, &fe):
			errs = fe
		case errors.Is(err, service.ErrUsernameExists):
			errs.Add("username", "A user with that username already exists.")
		case errors.Is(err, service.ErrEmailExists):
			errs.Add("email", "A user with that email already exists.")
		default:
			h.serverError(c, err)
			return
		}
		h.renderSignup(c, req, errs)
		return
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.logIn(c, token)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) renderSignup(c *gin.Context, req service.RegisterRequest, errs service.FormErrors) {
	// Never echo passwords back into the page.
	req.Password, req.PasswordConfirm = "", ""
	h.html(c, http.StatusOK, "users/signup.html", gin.H{"Form": req, "Errors": errs})
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	h.html(c, http.StatusOK, "users/login.html", gin.H{
		"Form": service.LoginRequest{},
		"Next": c.Query("next"),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}

	var req service.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderLogin(c, req, next, formErrors(err))
		return
	}

	token, _, err := h.authService.Login(req)
	if errors.Is(err, service.ErrInvalidCredentials) {
		errs := service.FormErrors{}
		errs.Add("", "Please enter a correct username and password.")
		h.renderLogin(c, req, next, errs)
		return
	}
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.logIn(c, token)
	c.Redirect(http.StatusFound, safeNext(next))
}

func (h *AuthHandler) renderLogin(c *gin.Context, req service.LoginRequest, next string, errs service.FormErrors) {
	req.Password = ""
	h.html(c, http.StatusOK, "users/login.html", gin.H{"Form": req, "Next": next, "Errors": errs})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setAuthCookie(c, "", -1)
	h.renewSession(c.Request.Context())
	middleware.ClearUser(c)
	h.html(c, http.StatusOK, "users/logged_out.html", nil)
}

func (h *AuthHandler) logIn(c *gin.Context, token string) {
	h.renewSession(c.Request.Context())
	h.setAuthCookie(c, token, int(utils.TokenTTL().Seconds()))
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, value string, maxAge int) {
	jwtConfig := config.GlobalConfig.JWT
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jwtConfig.CookieName, value, maxAge, "/", "", jwtConfig.SecureCookie, true)
}

// safeNext only follows local paths, so the login form cannot be used as an open redirect.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

package api

import (
	"io/fs"
	"net/http"
	"strings"

	"yatube/internal/interfaces"
	"yatube/internal/middleware"
	"yatube/internal/service"
	"yatube/web"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	AuthService  *service.AuthService
	GroupService *service.GroupService
	PostService  *service.PostService
	Hub          interfaces.ConnectionManager
	Sessions     *scs.SessionManager
	Limiter      *middleware.IPRateLimiter
	HTMLRender   render.HTMLRender
}

// NewRouter wires every route. Everything except the feed runs inside the
// session middleware.
func NewRouter(d Deps) (http.Handler, error) {
	useFormFieldNames()

	p := pages{sessions: d.Sessions}
	posts := NewPostHandler(d.PostService, d.GroupService, p)
	auth := NewAuthHandler(d.AuthService, p)
	feed := NewWSHandler(d.Hub, d.GroupService)

	r := gin.New()
	r.HTMLRender = d.HTMLRender
	r.RedirectTrailingSlash = true

	r.Use(middleware.RequestID())
	r.Use(middleware.GinZapLogger())
	r.Use(middleware.GinZapRecovery(p.panicked))
	r.Use(middleware.Authenticate())

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", http.FS(static))

	limit := func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limit = middleware.LimitSubmissions(d.Limiter, p.tooManyRequests)
	}

	r.GET("/", posts.Index)
	r.GET("/group/:slug/", posts.GroupPosts)
	r.GET("/profile/:username/", posts.Profile)
	r.GET("/posts/:post_id/", posts.Detail)

	protected := r.Group("/", middleware.LoginRequired())
	{
		protected.GET("/create/", posts.CreateForm)
		protected.POST("/create/", limit, posts.Create)
		protected.GET("/posts/:post_id/edit/", posts.EditForm)
		protected.POST("/posts/:post_id/edit/", limit, posts.Edit)
	}

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/signup/", auth.SignupForm)
		authGroup.POST("/signup/", limit, auth.Signup)
		authGroup.GET("/login/", auth.LoginForm)
		authGroup.POST("/login/", limit, auth.Login)
		authGroup.POST("/logout/", auth.Logout)
	}

	if d.Hub != nil {
		r.GET("/ws/feed/", feed.HandleFeed)
	}

	r.NoRoute(p.notFound)

	if d.Sessions == nil {
		return r, nil
	}
	withSession := d.Sessions.LoadAndSave(r)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, feedPrefix) {
			r.ServeHTTP(w, req)
			return
		}
		withSession.ServeHTTP(w, req)
	}), nil
}

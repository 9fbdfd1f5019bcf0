package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"yatube/internal/event"
	"yatube/internal/interfaces"
	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/pkg/config"
	"yatube/pkg/db"
	"yatube/pkg/utils"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/stretchr/testify/require"
)

// recordedPage is what a handler asked to render: the template name and its context.
type recordedPage struct {
	Name string
	Data gin.H
}

type recordingRender struct {
	mu    sync.Mutex
	pages []recordedPage
}

func (r *recordingRender) Instance(name string, data any) render.Render {
	h, _ := data.(gin.H)
	r.mu.Lock()
	r.pages = append(r.pages, recordedPage{Name: name, Data: h})
	r.mu.Unlock()
	return render.Data{ContentType: "text/html; charset=utf-8", Data: []byte(name)}
}

func (r *recordingRender) reset() {
	r.mu.Lock()
	r.pages = nil
	r.mu.Unlock()
}

func (r *recordingRender) last() recordedPage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pages) == 0 {
		return recordedPage{}
	}
	return r.pages[len(r.pages)-1]
}

type stubHub struct {
	mu     sync.Mutex
	events []*event.PostEvent
}

func (h *stubHub) Register(interfaces.Client)   {}
func (h *stubHub) Unregister(interfaces.Client) {}
func (h *stubHub) ClientCount() int             { return 0 }
func (h *stubHub) Close() error                 { return nil }

func (h *stubHub) BroadcastPostEvent(e *event.PostEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *stubHub) recorded() []*event.PostEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*event.PostEvent(nil), h.events...)
}

type testEnv struct {
	handler http.Handler
	render  *recordingRender
	hub     *stubHub

	users  *repository.UserRepository
	groups *repository.GroupRepository
	posts  *repository.PostRepository

	author *model.User
	other  *model.User
	group  *model.Group
	post   *model.Post
}

type envOption func(*Deps)

func withLimiter(l *middleware.IPRateLimiter) envOption {
	return func(d *Deps) { d.Limiter = l }
}

func withHub(h interfaces.ConnectionManager) envOption {
	return func(d *Deps) { d.Hub = h }
}

// setupTestEnv builds the real router over a fresh in-memory database holding
// the author "auth", a second user "HasNoName", one group and one post.
func setupTestEnv(t *testing.T, opts ...envOption) *testEnv {
	require.NoError(t, config.InitTest(), "Failed to initialize config")
	require.NoError(t, db.InitDB(), "Failed to connect to test database")
	t.Cleanup(db.Close)
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		render: &recordingRender{},
		hub:    &stubHub{},
		users:  repository.NewUserRepository(),
		groups: repository.NewGroupRepository(),
		posts:  repository.NewPostRepository(),
	}

	deps := Deps{
		AuthService:  service.NewAuthService(env.users),
		GroupService: service.NewGroupService(env.groups),
		Sessions:     scs.New(),
		HTMLRender:   env.render,
		Hub:          env.hub,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	var feed service.FeedBroadcaster
	if deps.Hub != nil {
		feed = deps.Hub
	}
	deps.PostService = service.NewPostService(env.posts, env.groups, env.users, feed)

	handler, err := NewRouter(deps)
	require.NoError(t, err)
	env.handler = handler

	env.author = env.createUser(t, "auth")
	env.other = env.createUser(t, "HasNoName")
	env.group = &model.Group{Title: "Test group", Slug: "test-slug", Description: "Test description"}
	require.NoError(t, env.groups.Create(env.group))

	env.post = &model.Post{Text: "Test post", AuthorID: env.author.ID, GroupID: &env.group.ID}
	require.NoError(t, env.posts.Create(env.post))
	return env
}

func (e *testEnv) createUser(t *testing.T, username string) *model.User {
	user := &model.User{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, e.users.Create(user))
	return user
}

func authCookie(t *testing.T, user *model.User) *http.Cookie {
	token, err := utils.GenerateToken(user.ID)
	require.NoError(t, err)
	return &http.Cookie{Name: config.GlobalConfig.JWT.CookieName, Value: token}
}

// do performs one request. A non-nil form is sent url-encoded; user, when
// set, is logged in through the auth cookie.
func (e *testEnv) do(t *testing.T, method, target string, form url.Values, user *model.User, cookies ...*http.Cookie) (*httptest.ResponseRecorder, recordedPage) {
	e.render.reset()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != nil {
		req.AddCookie(authCookie(t, user))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w, e.render.last()
}

func (e *testEnv) get(t *testing.T, target string, user *model.User) (*httptest.ResponseRecorder, recordedPage) {
	return e.do(t, http.MethodGet, target, nil, user)
}

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"yatube/internal/event"
	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/service"
	"yatube/pkg/db"
	"yatube/pkg/paginator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageOf(t *testing.T, page recordedPage) paginator.Page[model.Post] {
	p, ok := page.Data["Page"].(paginator.Page[model.Post])
	require.True(t, ok, "context of %s has no Page", page.Name)
	return p
}

func postIDs(posts []model.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPagesUseCorrectTemplate(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		address  string
		template string
	}{
		{"/", "posts/index.html"},
		{"/group/test-slug/", "posts/group_list.html"},
		{"/profile/auth/", "posts/profile.html"},
		{fmt.Sprintf("/posts/%d/", env.post.ID), "posts/post_detail.html"},
		{"/create/", "posts/create_post.html"},
		{fmt.Sprintf("/posts/%d/edit/", env.post.ID), "posts/create_post.html"},
		{"/unexisting_page/", "core/404.html"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			_, page := env.get(t, tt.address, env.author)
			assert.Equal(t, tt.template, page.Name)
		})
	}
}

func TestPageAccess(t *testing.T) {
	env := setupTestEnv(t)
	editURL := fmt.Sprintf("/posts/%d/edit/", env.post.ID)

	tests := []struct {
		address string
		guest   int
		other   int
		author  int
	}{
		{address: "/", guest: http.StatusOK, other: http.StatusOK, author: http.StatusOK},
		{address: "/group/test-slug/", guest: http.StatusOK, other: http.StatusOK, author: http.StatusOK},
		{address: "/profile/auth/", guest: http.StatusOK, other: http.StatusOK, author: http.StatusOK},
		{address: fmt.Sprintf("/posts/%d/", env.post.ID), guest: http.StatusOK, other: http.StatusOK, author: http.StatusOK},
		{address: "/create/", guest: http.StatusFound, other: http.StatusOK, author: http.StatusOK},
		{address: editURL, guest: http.StatusFound, other: http.StatusFound, author: http.StatusOK},
		{address: "/unexisting_page/", guest: http.StatusNotFound, other: http.StatusNotFound, author: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			w, _ := env.get(t, tt.address, nil)
			assert.Equal(t, tt.guest, w.Code, "guest")
			w, _ = env.get(t, tt.address, env.other)
			assert.Equal(t, tt.other, w.Code, "authorized non-author")
			w, _ = env.get(t, tt.address, env.author)
			assert.Equal(t, tt.author, w.Code, "author")
		})
	}
}

func TestRedirects(t *testing.T) {
	env := setupTestEnv(t)
	editURL := fmt.Sprintf("/posts/%d/edit/", env.post.ID)

	w, _ := env.get(t, "/create/", nil)
	assert.Equal(t, "/auth/login/?next=%2Fcreate%2F", w.Header().Get("Location"))

	w, _ = env.get(t, editURL, nil)
	assert.Equal(t, "/auth/login/?next="+url.QueryEscape(editURL), w.Header().Get("Location"))

	w, _ = env.get(t, editURL, env.other)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", env.post.ID), w.Header().Get("Location"))

	w, _ = env.get(t, "/group/test-slug", nil)
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/group/test-slug/", w.Header().Get("Location"))
}

func TestNotFound(t *testing.T) {
	env := setupTestEnv(t)

	for _, address := range []string{
		"/group/missing/",
		"/profile/ghost/",
		"/posts/9999/",
		"/posts/abc/",
		"/posts/9999/edit/",
		"/unexisting_page/",
	} {
		t.Run(address, func(t *testing.T) {
			w, page := env.get(t, address, env.author)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "core/404.html", page.Name)
		})
	}
}

func TestListingContext(t *testing.T) {
	env := setupTestEnv(t)

	_, page := env.get(t, "/", nil)
	assert.Equal(t, []uint{env.post.ID}, postIDs(pageOf(t, page).Items))

	_, page = env.get(t, "/group/test-slug/", nil)
	assert.Equal(t, []uint{env.post.ID}, postIDs(pageOf(t, page).Items))
	group, ok := page.Data["Group"].(*model.Group)
	require.True(t, ok)
	assert.Equal(t, env.group.ID, group.ID)

	_, page = env.get(t, "/profile/auth/", nil)
	assert.Equal(t, []uint{env.post.ID}, postIDs(pageOf(t, page).Items))
	author, ok := page.Data["Author"].(*model.User)
	require.True(t, ok)
	assert.Equal(t, "auth", author.Username)
	assert.EqualValues(t, 1, page.Data["PostCount"])
}

func TestPostDetailContext(t *testing.T) {
	env := setupTestEnv(t)

	_, page := env.get(t, fmt.Sprintf("/posts/%d/", env.post.ID), nil)
	post, ok := page.Data["Post"].(*model.Post)
	require.True(t, ok)
	assert.Equal(t, env.post.ID, post.ID)
	assert.Equal(t, "Test post", post.Text)
	assert.Equal(t, "auth", post.Author.Username)
	assert.EqualValues(t, 1, page.Data["AuthorPostCount"])
}

func TestPostFormContext(t *testing.T) {
	env := setupTestEnv(t)

	_, page := env.get(t, "/create/", env.author)
	assert.IsType(t, service.PostRequest{}, page.Data["Form"])
	assert.Nil(t, page.Data["IsEdit"])
	groups, ok := page.Data["Groups"].([]model.Group)
	require.True(t, ok)
	assert.Len(t, groups, 1)

	_, page = env.get(t, fmt.Sprintf("/posts/%d/edit/", env.post.ID), env.author)
	form, ok := page.Data["Form"].(service.PostRequest)
	require.True(t, ok)
	assert.Equal(t, "Test post", form.Text)
	assert.Equal(t, fmt.Sprintf("%d", env.group.ID), form.Group)
	assert.Equal(t, true, page.Data["IsEdit"])
	post, ok := page.Data["Post"].(*model.Post)
	require.True(t, ok)
	assert.Equal(t, env.post.ID, post.ID)
}

func TestPostWithGroupOnlyInItsGroup(t *testing.T) {
	env := setupTestEnv(t)
	other := &model.Group{Title: "Group 1", Slug: "test_slug_1", Description: "Description 1"}
	require.NoError(t, env.groups.Create(other))

	for _, address := range []string{"/", "/group/test-slug/", "/profile/auth/"} {
		_, page := env.get(t, address, nil)
		assert.Contains(t, postIDs(pageOf(t, page).Items), env.post.ID, address)
	}

	_, page := env.get(t, "/group/test_slug_1/", nil)
	assert.NotContains(t, postIDs(pageOf(t, page).Items), env.post.ID)
}

func TestPaginator(t *testing.T) {
	env := setupTestEnv(t)
	// Twelve more posts in the group: thirteen in total.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		p := &model.Post{
			Text:      fmt.Sprintf("Post %d", i),
			AuthorID:  env.author.ID,
			GroupID:   &env.group.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, env.posts.Create(p))
	}

	for _, address := range []string{"/", "/group/test-slug/", "/profile/auth/"} {
		t.Run(address, func(t *testing.T) {
			_, page := env.get(t, address, nil)
			assert.Len(t, pageOf(t, page).Items, 10)

			_, page = env.get(t, address+"?page=2", nil)
			assert.Len(t, pageOf(t, page).Items, 3)

			_, page = env.get(t, address+"?page=50", nil)
			assert.Equal(t, 2, pageOf(t, page).Number)

			_, page = env.get(t, address+"?page=oops", nil)
			assert.Equal(t, 1, pageOf(t, page).Number)
		})
	}

	_, page := env.get(t, "/", nil)
	assert.Equal(t, env.post.ID, pageOf(t, page).Items[0].ID, "newest post comes first")
}

func TestCreatePost(t *testing.T) {
	env := setupTestEnv(t)
	before := countPosts(t)

	form := url.Values{"text": {"test_text"}, "group": {fmt.Sprintf("%d", env.group.ID)}}
	w, _ := env.do(t, http.MethodPost, "/create/", form, env.other)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/HasNoName/", w.Header().Get("Location"))
	assert.Equal(t, before+1, countPosts(t))

	var created model.Post
	require.NoError(t, db.DB.Where("text = ?", "test_text").First(&created).Error)
	assert.Equal(t, env.other.ID, created.AuthorID)
	require.NotNil(t, created.GroupID)
	assert.Equal(t, env.group.ID, *created.GroupID)

	events := env.hub.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.PostCreated, events[0].Type)
	assert.Equal(t, "test-slug", events[0].GroupSlug)
}

func TestCreatePostIgnoresSubmittedAuthor(t *testing.T) {
	env := setupTestEnv(t)

	form := url.Values{"text": {"mine"}, "author": {fmt.Sprintf("%d", env.author.ID)}}
	w, _ := env.do(t, http.MethodPost, "/create/", form, env.other)
	require.Equal(t, http.StatusFound, w.Code)

	var created model.Post
	require.NoError(t, db.DB.Where("text = ?", "mine").First(&created).Error)
	assert.Equal(t, env.other.ID, created.AuthorID)
}

func TestCreatePostInvalid(t *testing.T) {
	env := setupTestEnv(t)
	before := countPosts(t)

	tests := []struct {
		name  string
		form  url.Values
		field string
		msg   string
	}{
		{name: "empty text", form: url.Values{"text": {"   "}}, field: "text", msg: service.MsgRequired},
		{name: "unknown group", form: url.Values{"text": {"x"}, "group": {"9999"}}, field: "group", msg: service.MsgInvalidChoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, page := env.do(t, http.MethodPost, "/create/", tt.form, env.author)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "posts/create_post.html", page.Name)

			errs, ok := page.Data["Errors"].(service.FormErrors)
			require.True(t, ok)
			assert.Contains(t, errs[tt.field], tt.msg)

			form, ok := page.Data["Form"].(service.PostRequest)
			require.True(t, ok)
			assert.Equal(t, tt.form.Get("text"), form.Text)
		})
	}

	assert.Equal(t, before, countPosts(t))
	assert.Empty(t, env.hub.recorded())
}

func TestCreatePostAnonymous(t *testing.T) {
	env := setupTestEnv(t)
	before := countPosts(t)

	w, _ := env.do(t, http.MethodPost, "/create/", url.Values{"text": {"anon"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fcreate%2F", w.Header().Get("Location"))
	assert.Equal(t, before, countPosts(t))
}

func TestEditPost(t *testing.T) {
	env := setupTestEnv(t)
	before := countPosts(t)
	address := fmt.Sprintf("/posts/%d/edit/", env.post.ID)

	w, _ := env.do(t, http.MethodPost, address, url.Values{"text": {"edited_text"}}, env.author)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", env.post.ID), w.Header().Get("Location"))
	assert.Equal(t, before, countPosts(t))

	edited, err := env.posts.FindByID(env.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited_text", edited.Text)
	assert.Nil(t, edited.GroupID, "an empty group choice clears the group")
	assert.Equal(t, env.author.ID, edited.AuthorID)

	events := env.hub.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.PostUpdated, events[0].Type)
}

func TestEditPostByNonAuthor(t *testing.T) {
	env := setupTestEnv(t)
	address := fmt.Sprintf("/posts/%d/edit/", env.post.ID)

	w, _ := env.do(t, http.MethodPost, address, url.Values{"text": {"hijacked"}}, env.other)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", env.post.ID), w.Header().Get("Location"))

	stored, err := env.posts.FindByID(env.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test post", stored.Text)
	assert.Empty(t, env.hub.recorded())
}

func TestEditPostInvalid(t *testing.T) {
	env := setupTestEnv(t)
	address := fmt.Sprintf("/posts/%d/edit/", env.post.ID)

	w, page := env.do(t, http.MethodPost, address, url.Values{"text": {""}}, env.author)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "posts/create_post.html", page.Name)
	assert.Equal(t, true, page.Data["IsEdit"])
	errs, ok := page.Data["Errors"].(service.FormErrors)
	require.True(t, ok)
	assert.True(t, errs.Has("text"))
}

func TestFlashAfterCreate(t *testing.T) {
	env := setupTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/create/", url.Values{"text": {"flash me"}}, env.author)
	require.Equal(t, http.StatusFound, w.Code)

	session := sessionCookie(w.Result().Cookies())
	require.NotNil(t, session, "session cookie must be set")

	_, page := env.do(t, http.MethodGet, "/profile/auth/", nil, env.author, session)
	assert.Equal(t, "Your post has been published.", page.Data["Flash"])

	// Popped: it shows once.
	_, page = env.do(t, http.MethodGet, "/profile/auth/", nil, env.author, session)
	assert.Nil(t, page.Data["Flash"])
}

func TestUserInContext(t *testing.T) {
	env := setupTestEnv(t)

	_, page := env.get(t, "/", env.author)
	user, ok := page.Data["User"].(*model.User)
	require.True(t, ok)
	assert.Equal(t, env.author.ID, user.ID)

	_, page = env.get(t, "/", nil)
	assert.Nil(t, page.Data["User"])
}

func TestSubmissionsAreRateLimited(t *testing.T) {
	env := setupTestEnv(t, withLimiter(middleware.NewIPRateLimiter(0.001, 1)))

	w, _ := env.do(t, http.MethodPost, "/create/", url.Values{"text": {"one"}}, env.author)
	assert.Equal(t, http.StatusFound, w.Code)

	w, page := env.do(t, http.MethodPost, "/create/", url.Values{"text": {"two"}}, env.author)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "core/429.html", page.Name)

	w, _ = env.get(t, "/", env.author)
	assert.Equal(t, http.StatusOK, w.Code, "page views are not limited")
}

func TestStaticFiles(t *testing.T) {
	env := setupTestEnv(t)

	w, _ := env.get(t, "/static/css/style.css", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".container")
}

func countPosts(t *testing.T) int64 {
	var n int64
	require.NoError(t, db.DB.Model(&model.Post{}).Count(&n).Error)
	return n
}

func sessionCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

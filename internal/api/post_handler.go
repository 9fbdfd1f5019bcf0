package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	pages
	postService  *service.PostService
	groupService *service.GroupService
}

func NewPostHandler(postService *service.PostService, groupService *service.GroupService, p pages) *PostHandler {
	return &PostHandler{
		pages:        p,
		postService:  postService,
		groupService: groupService,
	}
}

func (h *PostHandler) Index(c *gin.Context) {
	page, err := h.postService.ListAll(c.Query("page"))
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.html(c, http.StatusOK, "posts/index.html", gin.H{"Page": page})
}

func (h *PostHandler) GroupPosts(c *gin.Context) {
	group, page, err := h.postService.ListByGroup(c.Param("slug"), c.Query("page"))
	if errors.Is(err, service.ErrGroupNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.html(c, http.StatusOK, "posts/group_list.html", gin.H{
		"Group": group,
		"Page":  page,
	})
}

func (h *PostHandler) Profile(c *gin.Context) {
	author, page, err := h.postService.ListByAuthor(c.Param("username"), c.Query("page"))
	if errors.Is(err, service.ErrUserNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.html(c, http.StatusOK, "posts/profile.html", gin.H{
		"Author":    author,
		"Page":      page,
		"PostCount": page.Count,
	})
}

func (h *PostHandler) Detail(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	count, err := h.postService.CountByAuthor(post.AuthorID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.html(c, http.StatusOK, "posts/post_detail.html", gin.H{
		"Post":            post,
		"AuthorPostCount": count,
	})
}

func (h *PostHandler) CreateForm(c *gin.Context) {
	h.renderForm(c, gin.H{"Form": service.PostRequest{}})
}

func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req service.PostRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderForm(c, gin.H{"Form": req, "Errors": formErrors(err)})
		return
	}

	_, err := h.postService.Create(user.ID, req)
	var fe service.FormErrors
	if errors.As(err, &fe) {
		h.renderForm(c, gin.H{"Form": req, "Errors": fe})
		return
	}
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.flash(c, "Your post has been published.")
	c.Redirect(http.StatusFound, profileURL(user.Username))
}

func (h *PostHandler) EditForm(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	if !service.CanEdit(post, middleware.CurrentUser(c).ID) {
		c.Redirect(http.StatusFound, detailURL(post.ID))
		return
	}
	h.renderForm(c, gin.H{
		"Form":   service.PostRequestFrom(post),
		"IsEdit": true,
		"Post":   post,
	})
}

func (h *PostHandler) Edit(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}

	var req service.PostRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderForm(c, gin.H{"Form": req, "Errors": formErrors(err), "IsEdit": true, "Post": post})
		return
	}

	_, err := h.postService.Update(post.ID, middleware.CurrentUser(c).ID, req)
	var fe service.FormErrors
	switch {
	case errors.Is(err, service.ErrNotPostAuthor):
		c.Redirect(http.StatusFound, detailURL(post.ID))
		return
	case errors.Is(err, service.ErrPostNotFound):
		h.notFound(c)
		return
	case errors.As(err, &fe):
		h.renderForm(c, gin.H{"Form": req, "Errors": fe, "IsEdit": true, "Post": post})
		return
	case err != nil:
		h.serverError(c, err)
		return
	}

	h.flash(c, "Your post has been updated.")
	c.Redirect(http.StatusFound, detailURL(post.ID))
}

// renderForm shows posts/create_post.html with the group choices added.
func (h *PostHandler) renderForm(c *gin.Context, data gin.H) {
	groups, err := h.groupService.List()
	if err != nil {
		h.serverError(c, err)
		return
	}
	data["Groups"] = groups
	h.html(c, http.StatusOK, "posts/create_post.html", data)
}

// loadPost resolves :post_id, answering 404 itself when there is no such post.
func (h *PostHandler) loadPost(c *gin.Context) (*model.Post, bool) {
	id, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || id == 0 {
		h.notFound(c)
		return nil, false
	}

	post, err := h.postService.Get(uint(id))
	if errors.Is(err, service.ErrPostNotFound) {
		h.notFound(c)
		return nil, false
	}
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	return post, true
}

func profileURL(username string) string {
	return fmt.Sprintf("/profile/%s/", url.PathEscape(username))
}

func detailURL(postID uint) string {
	return fmt.Sprintf("/posts/%d/", postID)
}

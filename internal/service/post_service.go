package service

import (
	"fmt"
	"strconv"
	"strings"

	"yatube/internal/event"
	"yatube/internal/model"
	"yatube/internal/repository"
	"yatube/pkg/logger"
	"yatube/pkg/paginator"

	"go.uber.org/zap"
)

// FeedBroadcaster pushes post events to live feed subscribers.
type FeedBroadcaster interface {
	BroadcastPostEvent(e *event.PostEvent) error
}

type PostService struct {
	postRepo  *repository.PostRepository
	groupRepo *repository.GroupRepository
	userRepo  *repository.UserRepository
	feed      FeedBroadcaster
}

// feed may be nil, in which case no events are emitted.
func NewPostService(postRepo *repository.PostRepository, groupRepo *repository.GroupRepository, userRepo *repository.UserRepository, feed FeedBroadcaster) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		feed:      feed,
	}
}

// PostRequest is the submitted post form. It has no author field: the
// author is always the authenticated user.
type PostRequest struct {
	Text  string `form:"text"`
	Group string `form:"group"`
}

// PostRequestFrom pre-fills the form with a post's current values.
func PostRequestFrom(post *model.Post) PostRequest {
	req := PostRequest{Text: post.Text}
	if post.GroupID != nil {
		req.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return req
}

func (s *PostService) ListAll(page string) (paginator.Page[model.Post], error) {
	return s.list(repository.PostFilter{}, page)
}

func (s *PostService) ListByGroup(slug, page string) (*model.Group, paginator.Page[model.Post], error) {
	group, err := s.groupRepo.FindBySlug(slug)
	if err != nil {
		return nil, paginator.Page[model.Post]{}, err
	}
	if group == nil {
		return nil, paginator.Page[model.Post]{}, ErrGroupNotFound
	}

	posts, err := s.list(repository.PostFilter{GroupID: &group.ID}, page)
	return group, posts, err
}

func (s *PostService) ListByAuthor(username, page string) (*model.User, paginator.Page[model.Post], error) {
	author, err := s.userRepo.FindByUsername(username)
	if err != nil {
		return nil, paginator.Page[model.Post]{}, err
	}
	if author == nil {
		return nil, paginator.Page[model.Post]{}, ErrUserNotFound
	}

	posts, err := s.list(repository.PostFilter{AuthorID: &author.ID}, page)
	return author, posts, err
}

func (s *PostService) list(filter repository.PostFilter, raw string) (paginator.Page[model.Post], error) {
	count, err := s.postRepo.Count(filter)
	if err != nil {
		return paginator.Page[model.Post]{}, fmt.Errorf("failed to count posts: %w", err)
	}

	number, numPages := paginator.Resolve(count, paginator.PerPage, raw)
	posts, err := s.postRepo.List(filter, paginator.PerPage, paginator.Offset(number, paginator.PerPage))
	if err != nil {
		return paginator.Page[model.Post]{}, fmt.Errorf("failed to list posts: %w", err)
	}

	return paginator.NewPage(posts, number, numPages, count, paginator.PerPage), nil
}

func (s *PostService) Get(postID uint) (*model.Post, error) {
	post, err := s.postRepo.FindByID(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) CountByAuthor(authorID uint) (int64, error) {
	return s.postRepo.Count(repository.PostFilter{AuthorID: &authorID})
}

// Create stores a new post owned by authorID.
func (s *PostService) Create(authorID uint, req PostRequest) (*model.Post, error) {
	text, groupID, err := s.clean(req)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Text:     text,
		AuthorID: authorID,
		GroupID:  groupID,
	}
	if err := s.postRepo.Create(post); err != nil {
		logger.L.Error("Error saving post to DB", zap.Uint("authorID", authorID), zap.Error(err))
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	saved, err := s.Get(post.ID)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Post created", zap.Uint("postID", saved.ID), zap.Uint("authorID", authorID))

	s.broadcast(event.PostCreated, saved)
	return saved, nil
}

// Update edits text and group of a post. Only the author may do so.
func (s *PostService) Update(postID, editorID uint, req PostRequest) (*model.Post, error) {
	post, err := s.Get(postID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(post, editorID) {
		logger.L.Warn("Rejected edit by non-author", zap.Uint("postID", postID), zap.Uint("editorID", editorID))
		return nil, ErrNotPostAuthor
	}

	text, groupID, err := s.clean(req)
	if err != nil {
		return nil, err
	}

	post.Text = text
	post.GroupID = groupID
	if err := s.postRepo.UpdateContent(post); err != nil {
		logger.L.Error("Error updating post", zap.Uint("postID", postID), zap.Error(err))
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	saved, err := s.Get(postID)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Post updated", zap.Uint("postID", postID))

	s.broadcast(event.PostUpdated, saved)
	return saved, nil
}

// CanEdit reports whether userID is the post's author.
func CanEdit(post *model.Post, userID uint) bool {
	return post != nil && userID != 0 && post.AuthorID == userID
}

func (s *PostService) clean(req PostRequest) (string, *uint, error) {
	errs := FormErrors{}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		errs.Add("text", MsgRequired)
	}

	var groupID *uint
	if raw := strings.TrimSpace(req.Group); raw != "" {
		id, convErr := strconv.ParseUint(raw, 10, 64)
		if convErr != nil || id == 0 {
			errs.Add("group", MsgInvalidChoice)
		} else {
			group, err := s.groupRepo.FindByID(uint(id))
			if err != nil {
				return "", nil, err
			}
			if group == nil {
				errs.Add("group", MsgInvalidChoice)
			} else {
				groupID = &group.ID
			}
		}
	}

	if len(errs) > 0 {
		return "", nil, errs
	}
	return text, groupID, nil
}

func (s *PostService) broadcast(t event.Type, post *model.Post) {
	if s.feed == nil {
		return
	}
	if err := s.feed.BroadcastPostEvent(event.NewPostEvent(t, post)); err != nil {
		logger.L.Warn("Failed to broadcast post event",
			zap.String("type", string(t)),
			zap.Uint("postID", post.ID),
			zap.Error(err))
	}
}

package repository

import (
	"errors"

	"yatube/internal/model"
	"yatube/pkg/db"

	"gorm.io/gorm"
)

// PostFilter narrows a listing; nil fields are ignored.
type PostFilter struct {
	AuthorID *uint
	GroupID  *uint
}

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository() *PostRepository {
	return &PostRepository{db: db.DB}
}

func (r *PostRepository) Create(post *model.Post) error {
	return r.db.Omit("Author", "Group").Create(post).Error
}

// UpdateContent writes only the editable columns; author and creation time are left alone.
func (r *PostRepository) UpdateContent(post *model.Post) error {
	return r.db.Model(&model.Post{ID: post.ID}).
		Select("text", "group_id", "updated_at").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
		}).Error
}

// FindByID loads a post together with its author and group.
func (r *PostRepository) FindByID(postID uint) (*model.Post, error) {
	var post model.Post
	err := r.db.Preload("Author").Preload("Group").First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // post not found
		}
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) Count(filter PostFilter) (int64, error) {
	var count int64
	err := r.scope(filter).Model(&model.Post{}).Count(&count).Error
	return count, err
}

// List returns one window of the filtered posts, newest first.
func (r *PostRepository) List(filter PostFilter, limit, offset int) ([]model.Post, error) {
	var posts []model.Post
	err := r.scope(filter).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Preload("Author").
		Preload("Group").
		Find(&posts).Error

	return posts, err
}

func (r *PostRepository) scope(filter PostFilter) *gorm.DB {
	q := r.db
	if filter.AuthorID != nil {
		q = q.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.GroupID != nil {
		q = q.Where("group_id = ?", *filter.GroupID)
	}
	return q
}

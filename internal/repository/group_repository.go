package repository

import (
	"errors"

	"yatube/internal/model"
	"yatube/pkg/db"

	"gorm.io/gorm"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository() *GroupRepository {
	return &GroupRepository{db: db.DB}
}

func (r *GroupRepository) Create(group *model.Group) error {
	return r.db.Create(group).Error
}

func (r *GroupRepository) FindByID(groupID uint) (*model.Group, error) {
	var group model.Group
	if err := r.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // group not found
		}
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) FindBySlug(slug string) (*model.Group, error) {
	var group model.Group
	if err := r.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// List returns all groups ordered by title, as offered in the post form.
func (r *GroupRepository) List() ([]model.Group, error) {
	var groups []model.Group
	err := r.db.Order("title ASC").Order("id ASC").Find(&groups).Error
	return groups, err
}

package service

import (
	"regexp"
	"strings"

	"yatube/internal/model"
	"yatube/internal/repository"
	"yatube/pkg/logger"

	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

type GroupService struct {
	groupRepo *repository.GroupRepository
}

func NewGroupService(groupRepo *repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

type CreateGroupRequest struct {
	Title       string
	Slug        string
	Description string
}

func (s *GroupService) Create(req CreateGroupRequest) (*model.Group, error) {
	title := strings.TrimSpace(req.Title)
	slug := strings.TrimSpace(req.Slug)
	description := strings.TrimSpace(req.Description)

	errs := FormErrors{}
	switch {
	case title == "":
		errs.Add("title", MsgRequired)
	case len([]rune(title)) > 200:
		errs.Add("title", "Ensure this value has at most 200 characters.")
	}
	if description == "" {
		errs.Add("description", MsgRequired)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if !slugPattern.MatchString(slug) || len(slug) > 50 {
		return nil, ErrInvalidSlug
	}

	existing, err := s.groupRepo.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlugExists
	}

	group := &model.Group{Title: title, Slug: slug, Description: description}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, err
	}

	logger.L.Info("Group created", zap.Uint("groupID", group.ID), zap.String("slug", group.Slug))
	return group, nil
}

func (s *GroupService) GetBySlug(slug string) (*model.Group, error) {
	group, err := s.groupRepo.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// List returns the groups a post can be assigned to.
func (s *GroupService) List() ([]model.Group, error) {
	return s.groupRepo.List()
}

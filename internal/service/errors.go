package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrSlugExists    = errors.New("group slug already exists")
	ErrInvalidSlug   = errors.New("slug may contain only letters, digits, hyphens and underscores")
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrNotPostAuthor = errors.New("only the author can edit this post")
)

const (
	MsgRequired      = "This field is required."
	MsgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

// FormErrors maps a form field name to its validation messages.
// The empty key holds errors that belong to the form as a whole.
type FormErrors map[string][]string

func (e FormErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e FormErrors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e FormErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

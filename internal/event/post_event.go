// Package event defines the post notifications pushed to the live feed and
// their two encodings: protobuf binary for brokers, JSON for browsers.
package event

import (
	"fmt"
	"time"

	"yatube/internal/model"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Type string

const (
	PostCreated Type = "post.created"
	PostUpdated Type = "post.updated"
)

type PostEvent struct {
	Type      Type      `json:"type"`
	PostID    uint      `json:"post_id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	GroupSlug string    `json:"group_slug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPostEvent expects post.Author (and post.Group when set) to be loaded.
func NewPostEvent(t Type, post *model.Post) *PostEvent {
	e := &PostEvent{
		Type:      t,
		PostID:    post.ID,
		Text:      post.Text,
		Author:    post.Author.Username,
		CreatedAt: post.CreatedAt.UTC(),
	}
	if post.Group != nil {
		e.GroupSlug = post.Group.Slug
	}
	return e
}

// Marshal encodes the event as a protobuf Struct.
func Marshal(e *PostEvent) ([]byte, error) {
	s, err := e.toStruct()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func Unmarshal(data []byte) (*PostEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post event: %w", err)
	}
	return fromStruct(&s)
}

// MarshalJSON is the text form sent to websocket clients.
func MarshalJSON(e *PostEvent) ([]byte, error) {
	s, err := e.toStruct()
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

func UnmarshalJSON(data []byte) (*PostEvent, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse post event JSON: %w", err)
	}
	return fromStruct(&s)
}

func (e *PostEvent) toStruct() (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"type":       string(e.Type),
		"post_id":    e.PostID,
		"text":       e.Text,
		"author":     e.Author,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.GroupSlug != "" {
		fields["group_slug"] = e.GroupSlug
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build post event: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct) (*PostEvent, error) {
	f := s.GetFields()

	e := &PostEvent{
		Type:      Type(f["type"].GetStringValue()),
		PostID:    uint(f["post_id"].GetNumberValue()),
		Text:      f["text"].GetStringValue(),
		Author:    f["author"].GetStringValue(),
		GroupSlug: f["group_slug"].GetStringValue(),
	}
	if e.Type != PostCreated && e.Type != PostUpdated {
		return nil, fmt.Errorf("unknown post event type %q", e.Type)
	}
	if raw := f["created_at"].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at: %w", err)
		}
		e.CreatedAt = ts
	}
	return e, nil
}

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

func (c *Client) Forums(ctx context.Context, token string, courseID int64) ([]domain.Forum, error) {
	return getList[domain.Forum](ctx, c, request{
		op:     "forums",
		method: http.MethodGet,
		path:   "/forums/",
		query:  url.Values{"course": {strconv.FormatInt(courseID, 10)}},
		token:  token,
	})
}

func (c *Client) Topics(ctx context.Context, token string, forumID int64) ([]domain.Topic, error) {
	return getList[domain.Topic](ctx, c, request{
		op:     "topics",
		method: http.MethodGet,
		path:   "/topics/",
		query:  url.Values{"forum_id": {strconv.FormatInt(forumID, 10)}},
		token:  token,
	})
}

func (c *Client) Comments(ctx context.Context, token string, topicID int64) ([]domain.Comment, error) {
	return getList[domain.Comment](ctx, c, request{
		op:     "comments",
		method: http.MethodGet,
		path:   "/comments/",
		query:  url.Values{"topic_id": {strconv.FormatInt(topicID, 10)}},
		token:  token,
	})
}

// CreateForum opens a forum for a course. Lecturers only.
func (c *Client) CreateForum(ctx context.Context, token string, in domain.NewForum) (*domain.Forum, error) {
	var out domain.Forum
	if err := c.create(ctx, "create_forum", "/forums/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTopic(ctx context.Context, token string, in domain.NewTopic) (*domain.Topic, error) {
	var out domain.Topic
	if err := c.create(ctx, "create_topic", "/topics/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateComment(ctx context.Context, token string, in domain.NewComment) (*domain.Comment, error) {
	var out domain.Comment
	if err := c.create(ctx, "create_comment", "/comments/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PinTopic sets or clears a topic's pinned flag.
func (c *Client) PinTopic(ctx context.Context, token string, topicID int64, pinned bool) (*domain.Topic, error) {
	if token == "" {
		return nil, apierr.ErrUnauthenticated
	}
	var out domain.Topic
	err := c.doValidated(ctx, request{
		op:     "pin_topic",
		method: http.MethodPatch,
		path:   idPath("/topics/%d/", topicID),
		token:  token,
		json:   map[string]bool{"is_pinned": pinned},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) create(ctx context.Context, op, path, token string, in, out interface{}) error {
	if token == "" {
		return apierr.ErrUnauthenticated
	}
	if err := domain.Validate(in); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apierr.ErrValidation, err)
	}
	return c.doValidated(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   path,
		token:  token,
		json:   in,
	}, out)
}

package domain

import "time"

type Forum struct {
	ID          int64  `json:"id" validate:"required"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Course      int64  `json:"course"`
}

// Author is the user summary attached to forum posts.
type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type Topic struct {
	ID          int64     `json:"id" validate:"required"`
	Forum       int64     `json:"forum"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsPinned    bool      `json:"is_pinned"`
	User        *Author   `json:"user,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

type Comment struct {
	ID          int64     `json:"id" validate:"required"`
	Topic       int64     `json:"topic"`
	Content     string    `json:"content"`
	Parent      *int64    `json:"parent"`
	User        *Author   `json:"user,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

type NewForum struct {
	Course      int64  `json:"course" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

type NewTopic struct {
	Forum   int64  `json:"forum" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type NewComment struct {
	Topic   int64  `json:"topic" validate:"required"`
	Content string `json:"content" validate:"required"`
	Parent  *int64 `json:"parent"`
}

// CommentNode is a comment with its direct replies.
type CommentNode struct {
	Comment
	Replies []*CommentNode
}

// BuildCommentTree nests a flat comment list by parent id. Parents are found
// by a linear scan; replies whose parent is missing are promoted to the top
// level. Input order is kept at every level.
func BuildCommentTree(comments []Comment) []*CommentNode {
	nodes := make([]*CommentNode, len(comments))
	for i := range comments {
		nodes[i] = &CommentNode{Comment: comments[i]}
	}

	var roots []*CommentNode
	for _, n := range nodes {
		if n.Parent == nil {
			roots = append(roots, n)
			continue
		}
		var parent *CommentNode
		for _, candidate := range nodes {
			if candidate.ID == *n.Parent && candidate != n {
				parent = candidate
				break
			}
		}
		if parent == nil {
			roots = append(roots, n)
			continue
		}
		parent.Replies = append(parent.Replies, n)
	}
	return roots
}

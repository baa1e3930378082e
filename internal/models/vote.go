package models

import (
	"time"
)

// Vote records one rating action. A user votes at most once per post and once per comment.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vote_user_post;uniqueIndex:idx_vote_user_comment" json:"user_id"`
	PostID    *uint     `gorm:"index;uniqueIndex:idx_vote_user_post" json:"post_id"`
	CommentID *uint     `gorm:"index;uniqueIndex:idx_vote_user_comment" json:"comment_id"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
}

// ContentKind names the two kinds of rated content.
type ContentKind string

const (
	KindPost    ContentKind = "post"
	KindComment ContentKind = "comment"
)

// ParseContentKind accepts the route spelling of a kind.
func ParseContentKind(s string) (ContentKind, bool) {
	switch ContentKind(s) {
	case KindPost, KindComment:
		return ContentKind(s), true
	}
	return "", false
}

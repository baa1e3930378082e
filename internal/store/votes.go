package store

import (
	"context"
	"fmt"

	"ficehub/internal/models"

	"gorm.io/gorm"
)

// Scored is the part of a post or comment that voting touches.
type Scored struct {
	ID       uint
	AuthorID uint
	Score    int
}

// VoteOutcome reports the state after a vote. Created is false when the user had
// already voted on the content, in which case nothing changed.
type VoteOutcome struct {
	Scored
	Created bool
}

func contentTable(kind models.ContentKind) (table, voteColumn string, err error) {
	switch kind {
	case models.KindPost:
		return "posts", "post_id", nil
	case models.KindComment:
		return "comments", "comment_id", nil
	}
	return "", "", fmt.Errorf("unknown content kind %q", kind)
}

func (s *Store) lockScored(tx *gorm.DB, table string, id uint) (Scored, error) {
	var row Scored
	err := s.forUpdate(tx.Table(table).Select("id", "author_id", "score")).
		Where("id = ?", id).Take(&row).Error
	return row, err
}

// CastVote records one vote by userID and moves the content's score by value. A second
// vote by the same user on the same content is a no-op.
func (s *Store) CastVote(ctx context.Context, userID uint, kind models.ContentKind, id uint, value int) (VoteOutcome, error) {
	table, column, err := contentTable(kind)
	if err != nil {
		return VoteOutcome{}, err
	}

	var out VoteOutcome
	err = s.write(ctx, func(tx *gorm.DB) error {
		row, err := s.lockScored(tx, table, id)
		if err != nil {
			return err
		}
		out = VoteOutcome{Scored: row}

		var existing int64
		if err := tx.Model(&models.Vote{}).
			Where("user_id = ? AND "+column+" = ?", userID, id).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		vote := models.Vote{UserID: userID, Value: value}
		if kind == models.KindPost {
			vote.PostID = &id
		} else {
			vote.CommentID = &id
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		if err := tx.Table(table).Where("id = ?", id).
			UpdateColumn("score", gorm.Expr("score + ?", value)).Error; err != nil {
			return err
		}
		out.Score += value
		out.Created = true
		return nil
	})
	return out, err
}

// AdjustScore moves the content's score by delta without recording a vote.
func (s *Store) AdjustScore(ctx context.Context, kind models.ContentKind, id uint, delta int) (Scored, error) {
	table, _, err := contentTable(kind)
	if err != nil {
		return Scored{}, err
	}

	var out Scored
	err = s.write(ctx, func(tx *gorm.DB) error {
		row, err := s.lockScored(tx, table, id)
		if err != nil {
			return err
		}
		if err := tx.Table(table).Where("id = ?", id).
			UpdateColumn("score", gorm.Expr("score + ?", delta)).Error; err != nil {
			return err
		}
		row.Score += delta
		out = row
		return nil
	})
	return out, err
}

package store

import (
	"context"
	"errors"

	"ficehub/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		comment.ID = 0
		return tx.Omit("Post", "Author", "Parent").Create(comment).Error
	})
}

func (s *Store) CommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Author").First(&comment, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Comments lists a post's comments in floor order.
func (s *Store) Comments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Author").Where("post_id = ?", postID).
			Order("created_at ASC").Order("id ASC").
			Find(&comments).Error
	})
	return comments, err
}

// CommentAtFloor returns the floor-th comment (1-based) of the post in creation order.
func (s *Store) CommentAtFloor(ctx context.Context, postID uint, floor int) (*models.Comment, error) {
	if floor < 1 {
		return nil, gorm.ErrRecordNotFound
	}
	var comment models.Comment
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Author").Where("post_id = ?", postID).
			Order("created_at ASC").Order("id ASC").
			Offset(floor - 1).Take(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// CommentLinks loads the parent links of every comment on the post.
func (s *Store) CommentLinks(ctx context.Context, postID uint) (Links, error) {
	var links Links
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		links, err = commentLinks(db, postID)
		return err
	})
	return links, err
}

func commentLinks(db *gorm.DB, postID uint) (Links, error) {
	var rows []struct {
		ID       uint
		ParentID *uint
	}
	if err := db.Model(&models.Comment{}).Select("id", "parent_id").
		Where("post_id = ?", postID).Order("id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	links := make(Links, len(rows))
	for _, r := range rows {
		links[r.ID] = r.ParentID
	}
	return links, nil
}

// DeleteCommentTree removes the comment, its whole reply subtree and their votes. It returns
// the distinct authors of the removed comments.
func (s *Store) DeleteCommentTree(ctx context.Context, commentID uint) ([]uint, error) {
	var authors []uint
	err := s.write(ctx, func(tx *gorm.DB) error {
		authors = authors[:0]

		var comment models.Comment
		if err := s.forUpdate(tx.Select("id", "post_id")).First(&comment, commentID).Error; err != nil {
			return err
		}
		links, err := commentLinks(tx, comment.PostID)
		if err != nil {
			return err
		}
		ids := links.Subtree(commentID)

		if err := tx.Model(&models.Comment{}).Where("id IN ?", ids).
			Distinct("author_id").Pluck("author_id", &authors).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
	return authors, err
}

var (
	// ErrParentElsewhere reports a parent that is not a comment of the same post.
	ErrParentElsewhere = errors.New("parent is not a comment of the post")
	// ErrParentInSubtree reports a parent that is the comment itself or one of its replies.
	ErrParentInSubtree = errors.New("parent is in the comment's reply subtree")
)

// MoveComment re-parents a comment. A nil parent makes it top-level. The post's comment
// rows are locked in id order while the new parent is checked, so two concurrent moves
// cannot close a cycle between them.
func (s *Store) MoveComment(ctx context.Context, commentID uint, parentID *uint) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "post_id").First(&comment, commentID).Error; err != nil {
			return err
		}

		if parentID != nil {
			if *parentID == commentID {
				return ErrParentInSubtree
			}
			links, err := commentLinks(s.forUpdate(tx), comment.PostID)
			if err != nil {
				return err
			}
			if _, ok := links[*parentID]; !ok {
				return ErrParentElsewhere
			}
			if links.IsDescendant(*parentID, commentID) {
				return ErrParentInSubtree
			}
		}

		return tx.Model(&models.Comment{}).Where("id = ?", commentID).
			UpdateColumn("parent_id", parentID).Error
	})
}

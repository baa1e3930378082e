package store

import (
	"context"

	"ficehub/internal/models"

	"gorm.io/gorm"
)

// CreatePost inserts post together with its post_tags links. post.Slug must already be set.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		post.ID = 0
		return tx.Omit("Author", "Category", "Tags.*").Create(post).Error
	})
}

func (s *Store) PostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Author").Preload("Category").Preload("Tags").
			Where("slug = ?", slug).First(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost applies changes to the post's columns. When tags is non-nil the post's tag
// set is replaced with it. The slug is never touched.
func (s *Store) UpdatePost(ctx context.Context, postID uint, changes map[string]any, tags []models.Tag) error {
	delete(changes, "slug")
	return s.write(ctx, func(tx *gorm.DB) error {
		post := models.Post{ID: postID}
		if err := s.forUpdate(tx.Select("id")).First(&post).Error; err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := tx.Model(&post).Updates(changes).Error; err != nil {
				return err
			}
		}
		switch {
		case tags == nil:
			return nil
		case len(tags) == 0:
			return tx.Model(&post).Association("Tags").Clear()
		default:
			return tx.Model(&post).Omit("Tags.*").Association("Tags").Replace(tags)
		}
	})
}

// DeletePost removes the post with its comments, votes and tag links. It returns the ids of
// every author whose content was removed, the post author first.
func (s *Store) DeletePost(ctx context.Context, postID uint) ([]uint, error) {
	var authors []uint
	err := s.write(ctx, func(tx *gorm.DB) error {
		authors = authors[:0]

		var post models.Post
		if err := s.forUpdate(tx.Select("id", "author_id")).First(&post, postID).Error; err != nil {
			return err
		}

		var commentIDs, commentAuthors []uint
		comments := tx.Model(&models.Comment{}).Where("post_id = ?", postID)
		if err := comments.Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).
			Distinct("author_id").Pluck("author_id", &commentAuthors).Error; err != nil {
			return err
		}

		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}

		authors = uniq(append([]uint{post.AuthorID}, commentAuthors...))
		return nil
	})
	return authors, err
}

func (s *Store) RecordView(ctx context.Context, postID uint) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error
	})
}

// FillCommentCounts sets CommentCount on every post with one grouped query.
func (s *Store) FillCommentCounts(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Comment{}).
			Select("post_id, COUNT(*) AS count").
			Where("post_id IN ?", postIDs).
			Group("post_id").
			Scan(&results).Error
	})
	if err != nil {
		return err
	}

	countMap := make(map[uint]int, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"ficehub/internal/events"
	"ficehub/internal/models"
	"ficehub/internal/store"
	"ficehub/internal/utils"

	"go.uber.org/zap"
)

// CommentNode is a comment placed in its post's reply tree. Floor is the 1-based position
// of the comment among all comments of the post in creation order.
type CommentNode struct {
	models.Comment
	Floor    int            `json:"floor"`
	BodyHTML template.HTML  `json:"body_html"`
	Replies  []*CommentNode `json:"replies"`
}

// CreateComment adds a comment to the post. A parent, when given, must be a comment of the
// same post.
func (s *ContentService) CreateComment(ctx context.Context, author *models.User, postSlug, body string, parentID *uint) (*models.Comment, error) {
	if err := canPublish(author); err != nil {
		return nil, err
	}
	body, err := validBody(body)
	if err != nil {
		return nil, err
	}
	post, err := s.Post(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		ParentID: parentID,
		Body:     body,
	}
	if err := s.insertComment(ctx, &comment); err != nil {
		return nil, err
	}
	comment.Author = *author

	s.afterCommit(ctx, events.Event{Kind: events.Created, Content: models.KindComment, ContentID: comment.ID, AuthorID: author.ID})
	return &comment, nil
}

// lockThread serializes changes to the reply structure of one post.
func (s *ContentService) lockThread(ctx context.Context, postID uint) (func(), error) {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("comments:%d", postID))
	if err != nil {
		return nil, storeError(fmt.Sprintf("lock comments of post %d", postID), err)
	}
	return unlock, nil
}

// insertComment stores a comment. Replies are checked and inserted under the thread lock so
// the parent cannot be deleted or moved in between.
func (s *ContentService) insertComment(ctx context.Context, comment *models.Comment) error {
	if comment.ParentID != nil {
		unlock, err := s.lockThread(ctx, comment.PostID)
		if err != nil {
			return err
		}
		defer unlock()

		if err := s.checkParent(ctx, comment.PostID, *comment.ParentID); err != nil {
			return err
		}
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return storeError("create comment", err)
	}
	return nil
}

func (s *ContentService) checkParent(ctx context.Context, postID, parentID uint) error {
	parent, err := s.store.CommentByID(ctx, parentID)
	if err != nil {
		err = storeError(fmt.Sprintf("load comment %d", parentID), err)
		if isNotFound(err) {
			return fmt.Errorf("comment %d does not exist: %w", parentID, ErrInvalidParent)
		}
		return err
	}
	if parent.PostID != postID {
		return fmt.Errorf("comment %d belongs to another post: %w", parentID, ErrInvalidParent)
	}
	return nil
}

func (s *ContentService) Comment(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.store.CommentByID(ctx, id)
	if err != nil {
		return nil, storeError(fmt.Sprintf("load comment %d", id), err)
	}
	return comment, nil
}

// CommentAtFloor addresses a comment by its post and floor number.
func (s *ContentService) CommentAtFloor(ctx context.Context, postSlug string, floor int) (*CommentNode, error) {
	post, err := s.Post(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	comment, err := s.store.CommentAtFloor(ctx, post.ID, floor)
	if err != nil {
		return nil, storeError(fmt.Sprintf("load floor %d of %s", floor, postSlug), err)
	}
	return &CommentNode{
		Comment:  *comment,
		Floor:    floor,
		BodyHTML: utils.RenderComment(comment.Body),
		Replies:  []*CommentNode{},
	}, nil
}

// CommentTree returns the post's top-level comments with their replies nested below them,
// each level in floor order.
func (s *ContentService) CommentTree(ctx context.Context, postID uint) ([]*CommentNode, error) {
	comments, err := s.store.Comments(ctx, postID)
	if err != nil {
		return nil, storeError(fmt.Sprintf("load comments of post %d", postID), err)
	}

	nodes := make(map[uint]*CommentNode, len(comments))
	for i, c := range comments {
		nodes[c.ID] = &CommentNode{
			Comment:  c,
			Floor:    i + 1,
			BodyHTML: utils.RenderComment(c.Body),
			Replies:  []*CommentNode{},
		}
	}

	roots := []*CommentNode{}
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// DeleteComment removes the comment with every reply below it.
func (s *ContentService) DeleteComment(ctx context.Context, actor *models.User, id uint) error {
	comment, err := s.Comment(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, comment.AuthorID) {
		return fmt.Errorf("delete comment %d: %w", id, ErrForbidden)
	}

	unlock, err := s.lockThread(ctx, comment.PostID)
	if err != nil {
		return err
	}
	authors, err := s.store.DeleteCommentTree(ctx, id)
	unlock()
	if err != nil {
		return storeError(fmt.Sprintf("delete comment %d", id), err)
	}

	s.logger.Info("Comment deleted", zap.Uint("commentID", id), zap.Uint("actorID", actor.ID))
	evs := make([]events.Event, len(authors))
	for i, author := range authors {
		evs[i] = events.Event{Kind: events.Deleted, Content: models.KindComment, ContentID: id, AuthorID: author}
	}
	s.afterCommit(ctx, evs...)
	return nil
}

// MoveComment re-parents a comment within its post. A nil parent makes it top-level. The
// new parent may be neither the comment itself nor one of its replies.
func (s *ContentService) MoveComment(ctx context.Context, actor *models.User, id uint, parentID *uint) error {
	comment, err := s.Comment(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, comment.AuthorID) {
		return fmt.Errorf("move comment %d: %w", id, ErrForbidden)
	}
	if parentID != nil && *parentID == id {
		return fmt.Errorf("comment %d cannot reply to itself: %w", id, ErrInvalidParent)
	}

	unlock, err := s.lockThread(ctx, comment.PostID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.MoveComment(ctx, id, parentID)
	switch {
	case errors.Is(err, store.ErrParentElsewhere):
		return fmt.Errorf("comment %d is not on post %d: %w", *parentID, comment.PostID, ErrInvalidParent)
	case errors.Is(err, store.ErrParentInSubtree):
		return fmt.Errorf("comment %d is a reply of %d: %w", *parentID, id, ErrInvalidParent)
	case err != nil:
		return storeError(fmt.Sprintf("move comment %d", id), err)
	}
	return nil
}

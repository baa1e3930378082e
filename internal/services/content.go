package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"ficehub/internal/events"
	"ficehub/internal/lock"
	"ficehub/internal/models"
	"ficehub/internal/store"

	"go.uber.org/zap"
)

const (
	maxPostNameLen = 255
	maxBodyLen     = 100_000
)

// ContentService owns posts, comments and votes. Every committed mutation purges the search
// cache and publishes one event per affected author.
type ContentService struct {
	store    *store.Store
	locker   lock.Locker
	slugs    *SlugAssigner
	search   *SearchService
	notifier events.Notifier
	logger   *zap.Logger
}

func NewContentService(st *store.Store, locker lock.Locker, slugs *SlugAssigner, search *SearchService, notifier events.Notifier, logger *zap.Logger) *ContentService {
	return &ContentService{
		store:    st,
		locker:   locker,
		slugs:    slugs,
		search:   search,
		notifier: notifier,
		logger:   logger.Named("content"),
	}
}

// afterCommit runs once a mutation is durable. Publish failures leave the rating stale
// until the next event or sweep; they never fail the mutation.
func (s *ContentService) afterCommit(ctx context.Context, evs ...events.Event) {
	s.search.Invalidate()
	for _, ev := range evs {
		if err := s.notifier.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish event",
				zap.String("kind", string(ev.Kind)),
				zap.String("content", string(ev.Content)),
				zap.Uint("contentID", ev.ContentID),
				zap.Uint("authorID", ev.AuthorID),
				zap.Error(err))
		}
	}
}

func canModify(actor *models.User, authorID uint) bool {
	return actor.IsAdmin || actor.ID == authorID
}

func canPublish(actor *models.User) error {
	if actor.IsBlocked {
		return fmt.Errorf("user %s is blocked: %w", actor.Username, ErrForbidden)
	}
	return nil
}

func validName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxLen || len(name) > maxLen*4 {
		return "", fmt.Errorf("name longer than %d characters: %w", maxLen, ErrInvalidInput)
	}
	return name, nil
}

func validBody(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("body is required: %w", ErrInvalidInput)
	}
	if len(body) > maxBodyLen {
		return "", fmt.Errorf("body longer than %d bytes: %w", maxBodyLen, ErrInvalidInput)
	}
	return body, nil
}

// PostInput is what an author submits for a new post.
type PostInput struct {
	Name     string
	Body     string
	ImageURL string
	Category string   // category slug
	Tags     []string // tag slugs
}

// PostUpdate changes the non-nil fields of a post. Tags, when set, replaces the tag set.
type PostUpdate struct {
	Name     *string
	Body     *string
	ImageURL *string
	Category *string
	Tags     *[]string
}

func (s *ContentService) category(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.store.CategoryBySlug(ctx, slug)
	if err != nil {
		err = storeError("load category "+slug, err)
		if isNotFound(err) {
			return nil, fmt.Errorf("unknown category %q: %w", slug, ErrInvalidInput)
		}
		return nil, err
	}
	return category, nil
}

func (s *ContentService) tags(ctx context.Context, slugs []string) ([]models.Tag, error) {
	wanted := slices.Compact(slices.Sorted(slices.Values(slugs)))
	tags, err := s.store.TagsBySlugs(ctx, wanted)
	if err != nil {
		return nil, storeError("load tags", err)
	}
	if len(tags) != len(wanted) {
		for _, slug := range wanted {
			if !slices.ContainsFunc(tags, func(t models.Tag) bool { return t.Slug == slug }) {
				return nil, fmt.Errorf("unknown tag %q: %w", slug, ErrInvalidInput)
			}
		}
	}
	return tags, nil
}

// CreatePost validates in, assigns the post a fresh slug and stores it.
func (s *ContentService) CreatePost(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if err := canPublish(author); err != nil {
		return nil, err
	}
	name, err := validName(in.Name, maxPostNameLen)
	if err != nil {
		return nil, err
	}
	body, err := validBody(in.Body)
	if err != nil {
		return nil, err
	}
	category, err := s.category(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		AuthorID:   author.ID,
		CategoryID: category.ID,
		Tags:       tags,
		Name:       name,
		Body:       body,
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Views:      1,
	}
	_, err = s.slugs.Assign(ctx, NamespacePosts, name, func(slug string) error {
		post.Slug = slug
		return s.store.CreatePost(ctx, &post)
	})
	if err != nil {
		return nil, storeError("create post", err)
	}
	post.Author = *author
	post.Category = *category

	s.logger.Info("Post created", zap.String("slug", post.Slug), zap.Uint("authorID", author.ID))
	s.afterCommit(ctx, events.Event{Kind: events.Created, Content: models.KindPost, ContentID: post.ID, AuthorID: author.ID})
	return &post, nil
}

func (s *ContentService) Post(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.store.PostBySlug(ctx, slug)
	if err != nil {
		return nil, storeError("load post "+slug, err)
	}
	return post, nil
}

// ViewPost loads the post and counts a view. A failed counter update is logged only.
func (s *ContentService) ViewPost(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.Post(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.store.RecordView(ctx, post.ID); err != nil {
		s.logger.Warn("Failed to record view", zap.String("slug", slug), zap.Error(err))
		return post, nil
	}
	post.Views++
	return post, nil
}

// UpdatePost edits a post in place. The slug never changes and ratings are untouched.
func (s *ContentService) UpdatePost(ctx context.Context, actor *models.User, slug string, in PostUpdate) (*models.Post, error) {
	post, err := s.Post(ctx, slug)
	if err != nil {
		return nil, err
	}
	if actor.ID != post.AuthorID {
		return nil, fmt.Errorf("edit post %s: %w", slug, ErrForbidden)
	}

	changes := map[string]any{}
	if in.Name != nil {
		name, err := validName(*in.Name, maxPostNameLen)
		if err != nil {
			return nil, err
		}
		changes["name"] = name
	}
	if in.Body != nil {
		body, err := validBody(*in.Body)
		if err != nil {
			return nil, err
		}
		changes["body"] = body
	}
	if in.ImageURL != nil {
		changes["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.Category != nil {
		category, err := s.category(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		changes["category_id"] = category.ID
	}
	var tags []models.Tag
	if in.Tags != nil {
		if tags, err = s.tags(ctx, *in.Tags); err != nil {
			return nil, err
		}
		if tags == nil {
			tags = []models.Tag{}
		}
	}

	if err := s.store.UpdatePost(ctx, post.ID, changes, tags); err != nil {
		return nil, storeError("update post "+slug, err)
	}
	s.search.Invalidate()
	return s.Post(ctx, slug)
}

// DeletePost removes the post and its comments, then recomputes every affected author.
func (s *ContentService) DeletePost(ctx context.Context, actor *models.User, slug string) error {
	post, err := s.Post(ctx, slug)
	if err != nil {
		return err
	}
	if !canModify(actor, post.AuthorID) {
		return fmt.Errorf("delete post %s: %w", slug, ErrForbidden)
	}

	authors, err := s.store.DeletePost(ctx, post.ID)
	if err != nil {
		return storeError("delete post "+slug, err)
	}

	s.logger.Info("Post deleted", zap.String("slug", slug), zap.Uint("actorID", actor.ID))
	evs := make([]events.Event, len(authors))
	for i, author := range authors {
		evs[i] = events.Event{Kind: events.Deleted, Content: models.KindPost, ContentID: post.ID, AuthorID: author}
	}
	s.afterCommit(ctx, evs...)
	return nil
}

// Vote records a +1 or -1 by voter. Voting twice on the same content changes nothing.
func (s *ContentService) Vote(ctx context.Context, voter *models.User, kind models.ContentKind, id uint, value int) (store.VoteOutcome, error) {
	if value != 1 && value != -1 {
		return store.VoteOutcome{}, fmt.Errorf("vote value %d: %w", value, ErrInvalidInput)
	}
	out, err := s.store.CastVote(ctx, voter.ID, kind, id, value)
	if err != nil {
		return store.VoteOutcome{}, storeError(fmt.Sprintf("vote on %s %d", kind, id), err)
	}
	if out.Created {
		s.afterCommit(ctx, events.Event{Kind: events.ScoreChanged, Content: kind, ContentID: id, AuthorID: out.AuthorID})
	}
	return out, nil
}

// AdjustScore moves a score by delta without a vote record.
func (s *ContentService) AdjustScore(ctx context.Context, kind models.ContentKind, id uint, delta int) (store.Scored, error) {
	out, err := s.store.AdjustScore(ctx, kind, id, delta)
	if err != nil {
		return store.Scored{}, storeError(fmt.Sprintf("adjust score of %s %d", kind, id), err)
	}
	if delta != 0 {
		s.afterCommit(ctx, events.Event{Kind: events.ScoreChanged, Content: kind, ContentID: id, AuthorID: out.AuthorID})
	}
	return out, nil
}

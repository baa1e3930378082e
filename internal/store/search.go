package store

import (
	"context"
	"slices"
	"strings"

	"ficehub/internal/models"

	"gorm.io/gorm"
)

type Sort string

const (
	SortNewest       Sort = "newest"
	SortMostViewed   Sort = "most-viewed"
	SortHighestRated Sort = "highest-rated"
)

// ParseSort maps a query-string value to a Sort. Anything unknown is SortNewest.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortMostViewed:
		return SortMostViewed
	case SortHighestRated:
		return SortHighestRated
	}
	return SortNewest
}

func (s Sort) column() string {
	switch s {
	case SortMostViewed:
		return "posts.views"
	case SortHighestRated:
		return "posts.score"
	}
	return "posts.created_at"
}

// SearchCriteria filters posts. Zero-valued fields do not filter.
type SearchCriteria struct {
	Category string   // category slug, exact
	Tags     []string // tag slugs, any of
	Text     string   // case-insensitive substring of name, body or a tag name
	Sort     Sort
}

// Key identifies the criteria for caching. Tag order does not matter.
func (c SearchCriteria) Key() string {
	tags := slices.Clone(c.Tags)
	slices.Sort(tags)
	return strings.Join([]string{
		c.Category,
		strings.Join(tags, ","),
		strings.ToLower(c.Text),
		string(ParseSort(string(c.Sort))),
	}, "\x00")
}

// SearchPosts composes the filters of c into one query. Tag filters are IN subqueries so
// a post matching several tags is returned once. limit <= 0 means no limit.
func (s *Store) SearchPosts(ctx context.Context, c SearchCriteria, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.read(ctx, func(db *gorm.DB) error {
		q := db.Model(&models.Post{}).
			Preload("Author").Preload("Category").Preload("Tags")

		if c.Category != "" {
			q = q.Where("posts.category_id IN (?)",
				s.db.Model(&models.Category{}).Select("id").Where("slug = ?", c.Category))
		}

		if len(c.Tags) > 0 {
			q = q.Where("posts.id IN (?)",
				s.db.Table("post_tags").Select("post_tags.post_id").
					Joins("JOIN tags ON tags.id = post_tags.tag_id").
					Where("tags.slug IN ?", c.Tags))
		}

		if text := strings.TrimSpace(c.Text); text != "" {
			pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
			q = q.Where("("+s.ilike("posts.name")+" OR "+s.ilike("posts.body")+" OR posts.id IN (?))",
				pattern, pattern,
				s.db.Table("post_tags").Select("post_tags.post_id").
					Joins("JOIN tags ON tags.id = post_tags.tag_id").
					Where(s.ilike("tags.name"), pattern))
		}

		q = q.Order(ParseSort(string(c.Sort)).column() + " DESC").Order("posts.id DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&posts).Error
	})
	return posts, err
}

// ilike is a case-insensitive LIKE on col against a lower-cased, escaped pattern.
// SQLite connections carry a Unicode LOWER, see db.Open.
func (s *Store) ilike(col string) string {
	if s.isPostgres() {
		return col + ` ILIKE ? ESCAPE '\'`
	}
	return "LOWER(" + col + `) LIKE ? ESCAPE '\'`
}

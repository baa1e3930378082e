package store

import (
	"context"

	"gorm.io/gorm"
)

// TakenSlugs returns the slugs in table equal to base or of the form base-*.
func (s *Store) TakenSlugs(ctx context.Context, table, base string) ([]string, error) {
	var slugs []string
	err := s.read(ctx, func(db *gorm.DB) error {
		slugs = slugs[:0]
		return db.Table(table).
			Where("slug = ? OR slug LIKE ? ESCAPE '\\'", base, escapeLike(base)+"-%").
			Pluck("slug", &slugs).Error
	})
	return slugs, err
}

// SlugsWithPrefix returns every slug in table that starts with prefix.
func (s *Store) SlugsWithPrefix(ctx context.Context, table, prefix string) ([]string, error) {
	var slugs []string
	err := s.read(ctx, func(db *gorm.DB) error {
		slugs = slugs[:0]
		return db.Table(table).
			Where("slug LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
			Pluck("slug", &slugs).Error
	})
	return slugs, err
}

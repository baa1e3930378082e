package store

import (
	"context"

	"ficehub/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		category.ID = 0
		return tx.Create(category).Error
	})
}

func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Order("id ASC").Find(&categories).Error
	})
	return categories, err
}

func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("slug = ?", slug).First(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategoryDescription changes the only mutable category field.
func (s *Store) UpdateCategoryDescription(ctx context.Context, slug, description string) (*models.Category, error) {
	var category models.Category
	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).Where("slug = ?", slug).First(&category).Error; err != nil {
			return err
		}
		if err := tx.Model(&category).Update("description", description).Error; err != nil {
			return err
		}
		category.Description = description
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) CreateTag(ctx context.Context, tag *models.Tag) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		tag.ID = 0
		return tx.Create(tag).Error
	})
}

func (s *Store) Tags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Order("name ASC").Find(&tags).Error
	})
	return tags, err
}

// TagsBySlugs returns the tags that exist among slugs. Unknown slugs are skipped.
func (s *Store) TagsBySlugs(ctx context.Context, slugs []string) ([]models.Tag, error) {
	var tags []models.Tag
	if len(slugs) == 0 {
		return tags, nil
	}
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("slug IN ?", slugs).Order("id ASC").Find(&tags).Error
	})
	return tags, err
}

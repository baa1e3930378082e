package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ficehub/internal/models"
	"ficehub/internal/store"

	"go.uber.org/zap"
)

const (
	maxCategoryNameLen = 30
	maxCategoryDescLen = 100
	maxTagNameLen      = 50
)

// TaxonomyService manages categories and tags.
type TaxonomyService struct {
	store  *store.Store
	slugs  *SlugAssigner
	search *SearchService
	logger *zap.Logger
}

func NewTaxonomyService(st *store.Store, slugs *SlugAssigner, search *SearchService, logger *zap.Logger) *TaxonomyService {
	return &TaxonomyService{
		store:  st,
		slugs:  slugs,
		search: search,
		logger: logger.Named("taxonomy"),
	}
}

func validDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > maxCategoryDescLen {
		return "", fmt.Errorf("description longer than %d characters: %w", maxCategoryDescLen, ErrInvalidInput)
	}
	return desc, nil
}

// CreateCategory is reserved to admins.
func (s *TaxonomyService) CreateCategory(ctx context.Context, actor *models.User, name, description, redirectURL string) (*models.Category, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("create category: %w", ErrForbidden)
	}
	name, err := validName(name, maxCategoryNameLen)
	if err != nil {
		return nil, err
	}
	description, err = validDescription(description)
	if err != nil {
		return nil, err
	}

	category := models.Category{Name: name, Description: description, RedirectURL: strings.TrimSpace(redirectURL)}
	_, err = s.slugs.Assign(ctx, NamespaceCategories, name, func(slug string) error {
		category.Slug = slug
		return s.store.CreateCategory(ctx, &category)
	})
	if err != nil {
		return nil, storeError("create category "+name, err)
	}
	s.logger.Info("Category created", zap.String("slug", category.Slug))
	return &category, nil
}

func (s *TaxonomyService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, storeError("list categories", err)
	}
	return categories, nil
}

// UpdateCategoryDescription edits the one mutable category field. Admins only.
func (s *TaxonomyService) UpdateCategoryDescription(ctx context.Context, actor *models.User, slug, description string) (*models.Category, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("edit category %s: %w", slug, ErrForbidden)
	}
	description, err := validDescription(description)
	if err != nil {
		return nil, err
	}
	category, err := s.store.UpdateCategoryDescription(ctx, slug, description)
	if err != nil {
		return nil, storeError("edit category "+slug, err)
	}
	s.search.Invalidate()
	return category, nil
}

// CreateTag lets any user who may publish add a tag.
func (s *TaxonomyService) CreateTag(ctx context.Context, actor *models.User, name string) (*models.Tag, error) {
	if err := canPublish(actor); err != nil {
		return nil, err
	}
	name, err := validName(name, maxTagNameLen)
	if err != nil {
		return nil, err
	}

	tag := models.Tag{Name: name}
	_, err = s.slugs.Assign(ctx, NamespaceTags, name, func(slug string) error {
		tag.Slug = slug
		return s.store.CreateTag(ctx, &tag)
	})
	if err != nil {
		return nil, storeError("create tag "+name, err)
	}
	return &tag, nil
}

func (s *TaxonomyService) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.store.Tags(ctx)
	if err != nil {
		return nil, storeError("list tags", err)
	}
	return tags, nil
}

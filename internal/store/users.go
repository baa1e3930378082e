package store

import (
	"context"

	"ficehub/internal/models"

	"gorm.io/gorm"
)

// CreateUser inserts the identity, credential and profile records in one transaction.
// user.Slug must already be set.
func (s *Store) CreateUser(ctx context.Context, user *models.User, cred *models.Credential, profile *models.Profile) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		user.ID = 0
		if err := tx.Omit("Group", "Profile").Create(user).Error; err != nil {
			return err
		}
		cred.UserID = user.ID
		if err := tx.Omit("User").Create(cred).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Group").Preload("Profile").First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserBySlug(ctx context.Context, slug string) (*models.User, error) {
	var user models.User
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Group").Preload("Profile").Where("slug = ?", slug).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GroupByName(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("name = ?", name).First(&group).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// UserIDs lists every user id in ascending order.
func (s *Store) UserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.read(ctx, func(db *gorm.DB) error {
		ids = ids[:0]
		return db.Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	})
	return ids, err
}

// UpdateProfile applies changes to the user's profile row.
func (s *Store) UpdateProfile(ctx context.Context, userID uint, changes map[string]any) (*models.Profile, error) {
	var profile models.Profile
	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&profile).Updates(changes).Error; err != nil {
			return err
		}
		profile = models.Profile{}
		return tx.Where("user_id = ?", userID).First(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// RecomputeRating replaces the user's rating with mean applied to the scores of every post
// and comment they authored. The user row stays locked for the whole read-compute-write.
func (s *Store) RecomputeRating(ctx context.Context, userID uint, mean func(scores []int) float64) (float64, error) {
	var rating float64
	err := s.write(ctx, func(tx *gorm.DB) error {
		var user models.User
		if err := s.forUpdate(tx.Select("id")).First(&user, userID).Error; err != nil {
			return err
		}

		var postScores, commentScores []int
		if err := tx.Model(&models.Post{}).Where("author_id = ?", userID).Pluck("score", &postScores).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("author_id = ?", userID).Pluck("score", &commentScores).Error; err != nil {
			return err
		}

		rating = mean(append(postScores, commentScores...))
		return tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("rating", rating).Error
	})
	return rating, err
}

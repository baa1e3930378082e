package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"ficehub/internal/models"
	"ficehub/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultGroup = "students"

	minPasswordLen = 8
	maxUsernameLen = 50
	maxFullNameLen = 50
	maxTelegramLen = 50
)

type UserService struct {
	store      *store.Store
	slugs      *SlugAssigner
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(st *store.Store, slugs *SlugAssigner, logger *zap.Logger) *UserService {
	return &UserService{
		store:      st,
		slugs:      slugs,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.Named("users"),
	}
}

// RegisterInput carries the identity, credential and profile of a new user.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	Group       string // defaults to DefaultGroup
	FullName    string
	Birthdate   *time.Time
	Telegram    string
	ImageURL    string
	RedirectURL string
}

// ProfileUpdate changes the non-nil profile fields.
type ProfileUpdate struct {
	FullName    *string
	Birthdate   *time.Time
	Telegram    *string
	ImageURL    *string
	RedirectURL *string
}

// Register creates the user with a slug derived from the username.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username, err := validName(in.Username, maxUsernameLen)
	if err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}
	fullName, err := validName(in.FullName, maxFullNameLen)
	if err != nil {
		return nil, fmt.Errorf("full name: %w", err)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("email %q: %w", in.Email, ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("password shorter than %d characters: %w", minPasswordLen, ErrInvalidInput)
	}
	if len(in.Telegram) > maxTelegramLen {
		return nil, fmt.Errorf("telegram handle too long: %w", ErrInvalidInput)
	}

	groupName := strings.TrimSpace(in.Group)
	if groupName == "" {
		groupName = DefaultGroup
	}
	group, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		err = storeError("load group "+groupName, err)
		if isNotFound(err) {
			return nil, fmt.Errorf("unknown group %q: %w", groupName, ErrInvalidInput)
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: username, GroupID: group.ID}
	cred := models.Credential{Email: strings.ToLower(addr.Address), PasswordHash: string(hash)}
	profile := models.Profile{
		FullName:    fullName,
		Birthdate:   in.Birthdate,
		Telegram:    strings.TrimSpace(in.Telegram),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		RedirectURL: strings.TrimSpace(in.RedirectURL),
	}
	_, err = s.slugs.Assign(ctx, NamespaceUsers, username, func(slug string) error {
		user.Slug = slug
		return s.store.CreateUser(ctx, &user, &cred, &profile)
	})
	if err != nil {
		return nil, storeError("register "+username, err)
	}
	user.Group = *group

	s.logger.Info("User registered", zap.String("slug", user.Slug), zap.Uint("userID", user.ID))
	return &user, nil
}

func (s *UserService) User(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, storeError(fmt.Sprintf("load user %d", id), err)
	}
	return user, nil
}

func (s *UserService) UserBySlug(ctx context.Context, slug string) (*models.User, error) {
	user, err := s.store.UserBySlug(ctx, slug)
	if err != nil {
		return nil, storeError("load user "+slug, err)
	}
	return user, nil
}

// UpdateProfile edits the profile of the user at slug. Only that user or an admin may.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, slug string, in ProfileUpdate) (*models.Profile, error) {
	user, err := s.UserBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, user.ID) {
		return nil, fmt.Errorf("edit profile of %s: %w", slug, ErrForbidden)
	}

	changes := map[string]any{}
	if in.FullName != nil {
		fullName, err := validName(*in.FullName, maxFullNameLen)
		if err != nil {
			return nil, fmt.Errorf("full name: %w", err)
		}
		changes["full_name"] = fullName
	}
	if in.Birthdate != nil {
		changes["birthdate"] = *in.Birthdate
	}
	if in.Telegram != nil {
		telegram := strings.TrimSpace(*in.Telegram)
		if len(telegram) > maxTelegramLen {
			return nil, fmt.Errorf("telegram handle too long: %w", ErrInvalidInput)
		}
		changes["telegram"] = telegram
	}
	if in.ImageURL != nil {
		changes["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.RedirectURL != nil {
		changes["redirect_url"] = strings.TrimSpace(*in.RedirectURL)
	}

	profile, err := s.store.UpdateProfile(ctx, user.ID, changes)
	if err != nil {
		return nil, storeError("update profile of "+slug, err)
	}
	return profile, nil
}

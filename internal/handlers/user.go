package handlers

import (
	"fmt"
	"net/http"
	"time"

	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const birthdateLayout = "2006-01-02"

type UserHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewUserHandler(users *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.Named("users"),
	}
}

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Group       string `json:"group"`
	FullName    string `json:"full_name" binding:"required"`
	Birthdate   string `json:"birthdate"`
	Telegram    string `json:"telegram"`
	ImageURL    string `json:"image_url"`
	RedirectURL string `json:"redirect_url"`
}

type profileRequest struct {
	FullName    *string `json:"full_name"`
	Birthdate   *string `json:"birthdate"`
	Telegram    *string `json:"telegram"`
	ImageURL    *string `json:"image_url"`
	RedirectURL *string `json:"redirect_url"`
}

func parseBirthdate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(birthdateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("birthdate must look like %s", birthdateLayout)
	}
	return &t, nil
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	birthdate, err := parseBirthdate(req.Birthdate)
	if err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Group:       req.Group,
		FullName:    req.FullName,
		Birthdate:   birthdate,
		Telegram:    req.Telegram,
		ImageURL:    req.ImageURL,
		RedirectURL: req.RedirectURL,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Profile shows a user with their rating and profile.
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.users.UserBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := services.ProfileUpdate{
		FullName:    req.FullName,
		Telegram:    req.Telegram,
		ImageURL:    req.ImageURL,
		RedirectURL: req.RedirectURL,
	}
	if req.Birthdate != nil {
		birthdate, err := parseBirthdate(*req.Birthdate)
		if err != nil {
			badRequest(c, err)
			return
		}
		in.Birthdate = birthdate
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), c.Param("slug"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

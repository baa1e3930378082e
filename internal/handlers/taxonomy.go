package handlers

import (
	"net/http"

	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaxonomyHandler serves categories and tags.
type TaxonomyHandler struct {
	taxonomy *services.TaxonomyService
	logger   *zap.Logger
}

func NewTaxonomyHandler(taxonomy *services.TaxonomyService, logger *zap.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomy: taxonomy,
		logger:   logger.Named("taxonomy"),
	}
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	RedirectURL string `json:"redirect_url"`
}

type categoryPatchRequest struct {
	Description string `json:"description"`
}

type tagRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *TaxonomyHandler) ListCategories(c *gin.Context) {
	categories, err := h.taxonomy.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *TaxonomyHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	category, err := h.taxonomy.CreateCategory(c.Request.Context(), currentUser(c), req.Name, req.Description, req.RedirectURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *TaxonomyHandler) UpdateCategory(c *gin.Context) {
	var req categoryPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	category, err := h.taxonomy.UpdateCategoryDescription(c.Request.Context(), currentUser(c), c.Param("slug"), req.Description)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *TaxonomyHandler) ListTags(c *gin.Context) {
	tags, err := h.taxonomy.Tags(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *TaxonomyHandler) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tag, err := h.taxonomy.CreateTag(c.Request.Context(), currentUser(c), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

package handlers

import (
	"net/http"

	"ficehub/internal/models"
	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VoteHandler struct {
	content *services.ContentService
	logger  *zap.Logger
}

func NewVoteHandler(content *services.ContentService, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		content: content,
		logger:  logger.Named("votes"),
	}
}

type scoreRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *VoteHandler) target(c *gin.Context) (models.ContentKind, uint, bool) {
	kind, ok := models.ParseContentKind(c.Param("type"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid content type"})
		return "", 0, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return "", 0, false
	}
	return kind, id, true
}

func (h *VoteHandler) cast(c *gin.Context, value int) {
	kind, id, ok := h.target(c)
	if !ok {
		return
	}

	out, err := h.content.Vote(c.Request.Context(), currentUser(c), kind, id, value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"id": out.ID, "score": out.Score, "created": out.Created})
}

// Vote handles upvote logic
func (h *VoteHandler) Vote(c *gin.Context) {
	h.cast(c, 1)
}

// Downvote handles downvote logic
func (h *VoteHandler) Downvote(c *gin.Context) {
	h.cast(c, -1)
}

// AdjustScore moves a score directly. Admin only, no vote is recorded.
func (h *VoteHandler) AdjustScore(c *gin.Context) {
	kind, id, ok := h.target(c)
	if !ok {
		return
	}
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.content.AdjustScore(c.Request.Context(), kind, id, req.Delta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": out.ID, "score": out.Score})
}

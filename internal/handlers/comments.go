package handlers

import (
	"net/http"
	"strconv"

	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommentHandler struct {
	content *services.ContentService
	logger  *zap.Logger
}

func NewCommentHandler(content *services.ContentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		content: content,
		logger:  logger.Named("comments"),
	}
}

type commentRequest struct {
	Body     string `json:"body" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

type moveRequest struct {
	// nil makes the comment top-level
	ParentID *uint `json:"parent_id"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.content.CreateComment(c.Request.Context(), currentUser(c), c.Param("slug"), req.Body, req.ParentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Floor returns the comment at the given 1-based position of the post.
func (h *CommentHandler) Floor(c *gin.Context) {
	floor, err := strconv.Atoi(c.Param("floor"))
	if err != nil || floor < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid floor"})
		return
	}

	node, err := h.content.CommentAtFloor(c.Request.Context(), c.Param("slug"), floor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.content.DeleteComment(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommentHandler) Move(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.content.MoveComment(ctx, currentUser(c), id, req.ParentID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	comment, err := h.content.Comment(ctx, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

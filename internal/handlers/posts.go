package handlers

import (
	"net/http"
	"strings"

	"ficehub/internal/models"
	"ficehub/internal/services"
	"ficehub/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostHandler struct {
	content *services.ContentService
	search  *services.SearchService
	logger  *zap.Logger
}

func NewPostHandler(content *services.ContentService, search *services.SearchService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		content: content,
		search:  search,
		logger:  logger.Named("posts"),
	}
}

type postRequest struct {
	Name     string   `json:"name" binding:"required"`
	Body     string   `json:"body" binding:"required"`
	ImageURL string   `json:"image_url"`
	Category string   `json:"category" binding:"required"`
	Tags     []string `json:"tags"`
}

type postPatchRequest struct {
	Name     *string   `json:"name"`
	Body     *string   `json:"body"`
	ImageURL *string   `json:"image_url"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

type postDetail struct {
	*models.Post
	BodyHTML string                  `json:"body_html"`
	Comments []*services.CommentNode `json:"comments"`
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Search lists posts filtered by category, tags and free text.
func (h *PostHandler) Search(c *gin.Context) {
	criteria := services.SearchCriteria{
		Category: strings.TrimSpace(c.Query("category")),
		Tags:     splitList(c.Query("tags")),
		Text:     strings.TrimSpace(c.Query("q")),
		Sort:     services.ParseSort(c.Query("sort")),
	}

	posts, err := h.search.Search(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "sort": criteria.Sort})
}

// Detail returns one post with its rendered body and comment tree, counting a view.
func (h *PostHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.content.ViewPost(ctx, c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	comments, err := h.content.CommentTree(ctx, post.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	post.CommentCount = countNodes(comments)

	c.JSON(http.StatusOK, postDetail{
		Post:     post,
		BodyHTML: string(utils.RenderMarkdown(post.Body)),
		Comments: comments,
	})
}

func countNodes(nodes []*services.CommentNode) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Replies)
	}
	return n
}

func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.content.CreatePost(c.Request.Context(), currentUser(c), services.PostInput{
		Name:     req.Name,
		Body:     req.Body,
		ImageURL: req.ImageURL,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var req postPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.content.UpdatePost(c.Request.Context(), currentUser(c), c.Param("slug"), services.PostUpdate{
		Name:     req.Name,
		Body:     req.Body,
		ImageURL: req.ImageURL,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.content.DeletePost(c.Request.Context(), currentUser(c), c.Param("slug")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package tags

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tagmark/pkg/tagmark/auth"
	"github.com/mikepea/tagmark/pkg/tagmark/bookmarks"
	"github.com/mikepea/tagmark/pkg/tagmark/logger"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
)

// Handler handles tag-related requests
type Handler struct {
	svc *bookmarks.Service
}

// NewHandler creates a new tags handler
func NewHandler(svc *bookmarks.Service) *Handler {
	return &Handler{svc: svc}
}

// SetTagsRequest represents the request to set tags on a link
type SetTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// List returns tag names on the links a query matches, without the tags the
// query already filters on
// @Summary List tags
// @Tags tags
// @Produce json
// @Param q query string false "Link search query"
// @Param filter query string false "Substring of the tag name"
// @Param sort query string false "alpha or count"
// @Success 200 {array} store.TagCount
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	sort := store.TagSort(c.DefaultQuery("sort", string(store.TagSortAlpha)))
	if sort != store.TagSortAlpha && sort != store.TagSortCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be alpha or count"})
		return
	}

	tags, err := h.svc.SearchTags(c.Request.Context(), bookmarks.TagSearchRequest{
		Query:  c.Query("q"),
		Filter: c.Query("filter"),
		Sort:   sort,
		UserID: auth.Viewer(c),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("search tags")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, tags)
}

// SetLinkTags sets the tags for a link (replaces existing tags)
// @Summary Replace a link's tags
// @Tags tags
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body SetTagsRequest true "Tag names"
// @Success 200 {object} map[string][]string
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{id}/tags [put]
func (h *Handler) SetLinkTags(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link ID"})
		return
	}

	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	names, res, err := h.svc.SetLinkTags(c.Request.Context(), userID, uint(id), req.Tags)
	if err != nil {
		logger.Log.Error().Err(err).Uint64("link_id", id).Msg("set link tags")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tags"})
		return
	}
	if !res.Success {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": names})
}

// PurgeUnused deletes tags that no link carries
// @Summary Delete unused tags
// @Tags tags
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /tags/unused [delete]
func (h *Handler) PurgeUnused(c *gin.Context) {
	deleted, err := h.svc.PurgeUnusedTags(c.Request.Context())
	if err != nil {
		logger.Log.Error().Err(err).Msg("purge tags")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListAll returns every stored tag, used or not
// @Summary List all tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Security BearerAuth
// @Router /tags/all [get]
func (h *Handler) ListAll(c *gin.Context) {
	tags, err := h.svc.ListTags(c.Request.Context())
	if err != nil {
		logger.Log.Error().Err(err).Msg("list tags")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, tags)
}

// Delete removes a tag from every link
// @Summary Delete a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} map[string]string "Tag deleted"
// @Failure 404 {object} map[string]string "Tag not found"
// @Security BearerAuth
// @Router /tags/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	res, err := h.svc.DeleteTag(c.Request.Context(), uint(id))
	if err != nil {
		logger.Log.Error().Err(err).Uint64("tag_id", id).Msg("delete tag")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tag"})
		return
	}
	if !res.Success {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted"})
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", auth.OptionalAuth(), h.List)
	rg.GET("/tags/all", auth.AuthMiddleware(), h.ListAll)
	rg.DELETE("/tags/unused", auth.AuthMiddleware(), h.PurgeUnused)
	rg.DELETE("/tags/:id", auth.AuthMiddleware(), h.Delete)
	rg.PUT("/links/:id/tags", auth.AuthMiddleware(), h.SetLinkTags)
}

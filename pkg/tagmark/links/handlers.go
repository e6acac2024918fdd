package links

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tagmark/pkg/tagmark/auth"
	"github.com/mikepea/tagmark/pkg/tagmark/bookmarks"
	"github.com/mikepea/tagmark/pkg/tagmark/logger"
)

// Handler handles link-related requests
type Handler struct {
	svc *bookmarks.Service
}

// NewHandler creates a new links handler
func NewHandler(svc *bookmarks.Service) *Handler {
	return &Handler{svc: svc}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	URL         string   `json:"url" binding:"required"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`
}

// failureStatus maps a refused operation to an HTTP status. Links owned by
// someone else look missing.
func failureStatus(res bookmarks.Result) (int, string) {
	switch res.Reason {
	case bookmarks.ReasonNotFound, bookmarks.ReasonNotOwner:
		return http.StatusNotFound, "Link not found"
	case bookmarks.ReasonImmutable:
		return http.StatusBadRequest, res.Detail
	default:
		msg := "Invalid link"
		if res.Detail != "" {
			msg = res.Detail
		}
		return http.StatusBadRequest, msg
	}
}

func respondFailure(c *gin.Context, res bookmarks.Result) {
	status, msg := failureStatus(res)
	c.JSON(status, gin.H{"error": msg})
}

func respondError(c *gin.Context, err error, msg string) {
	logger.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func parseLinkID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link ID"})
		return 0, false
	}
	return uint(id), true
}

// List searches links
// @Summary Search links
// @Description Search the caller's links, or public links when anonymous. Tokens starting with # filter by tag.
// @Tags links
// @Produce json
// @Param q query string false "Search query"
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} bookmarks.LinkPage
// @Router /links [get]
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.svc.SearchLinks(c.Request.Context(), bookmarks.SearchRequest{
		Query:  c.Query("q"),
		Page:   page,
		Limit:  limit,
		UserID: auth.Viewer(c),
	})
	if err != nil {
		respondError(c, err, "Failed to search links")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Create saves a new link
// @Summary Create a link
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} bookmarks.LinkView
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /links [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, res, err := h.svc.CreateLink(c.Request.Context(), userID, bookmarks.LinkRequest{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err, "Failed to create link")
		return
	}
	if !res.Success {
		respondFailure(c, res)
		return
	}

	c.JSON(http.StatusCreated, link)
}

// Get returns one link
// @Summary Get a link
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} bookmarks.LinkView
// @Failure 404 {object} map[string]string "Link not found"
// @Router /links/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseLinkID(c)
	if !ok {
		return
	}

	link, res, err := h.svc.GetLink(c.Request.Context(), auth.Viewer(c), id)
	if err != nil {
		respondError(c, err, "Failed to fetch link")
		return
	}
	if !res.Success {
		respondFailure(c, res)
		return
	}

	c.JSON(http.StatusOK, link)
}

// Update changes a link's fields. Owner and saved time cannot change.
// @Summary Update a link
// @Tags links
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body bookmarks.LinkUpdate true "Fields to change"
// @Success 200 {object} bookmarks.LinkView
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseLinkID(c)
	if !ok {
		return
	}

	var req bookmarks.LinkUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, res, err := h.svc.UpdateLink(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err, "Failed to update link")
		return
	}
	if !res.Success {
		respondFailure(c, res)
		return
	}

	c.JSON(http.StatusOK, link)
}

// Delete deletes a link
// @Summary Delete a link
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} map[string]string "Link deleted"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseLinkID(c)
	if !ok {
		return
	}

	res, err := h.svc.DeleteLink(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "Failed to delete link")
		return
	}
	if !res.Success {
		respondFailure(c, res)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
}

// RegisterRoutes registers link routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", auth.OptionalAuth(), h.List)
	rg.POST("", auth.AuthMiddleware(), h.Create)
	rg.GET("/:id", auth.OptionalAuth(), h.Get)
	rg.PUT("/:id", auth.AuthMiddleware(), h.Update)
	rg.DELETE("/:id", auth.AuthMiddleware(), h.Delete)
}

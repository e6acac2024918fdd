package importexport

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tagmark/pkg/tagmark/auth"
	"github.com/mikepea/tagmark/pkg/tagmark/bookmarks"
	"github.com/mikepea/tagmark/pkg/tagmark/logger"
)

// maxUploadSize caps bookmark file uploads
const maxUploadSize = 32 << 20

// Handler handles bookmark file import and export
type Handler struct {
	svc *bookmarks.Service
}

// NewHandler creates a new import/export handler
func NewHandler(svc *bookmarks.Service) *Handler {
	return &Handler{svc: svc}
}

// Import reads a Netscape bookmark file into the caller's links. The file is
// sent as the multipart field "file" or as the raw request body. Progress is
// pushed to the caller's socket connection while the import runs.
// @Summary Import bookmarks
// @Tags import-export
// @Accept multipart/form-data,text/html
// @Produce json
// @Param file formData file false "Bookmark file"
// @Success 200 {object} bookmarks.ImportResult
// @Failure 400 {object} map[string]string "No file"
// @Security BearerAuth
// @Router /import [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bookmark file required"})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.svc.Import(c.Request.Context(), userID, body)
	if err != nil {
		logger.Log.Error().Err(err).Uint("user_id", userID).Msg("import bookmarks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import bookmarks"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Export downloads the caller's links as a Netscape bookmark file
// @Summary Export bookmarks
// @Tags import-export
// @Produce text/html
// @Success 200 {string} string "Bookmark file"
// @Security BearerAuth
// @Router /export [get]
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	doc, err := h.svc.Export(c.Request.Context(), userID)
	if err != nil {
		logger.Log.Error().Err(err).Uint("user_id", userID).Msg("export bookmarks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export bookmarks"})
		return
	}

	filename := "bookmarks-" + time.Now().UTC().Format("2006-01-02") + ".html"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", auth.AuthMiddleware(), h.Import)
	rg.GET("/export", auth.AuthMiddleware(), h.Export)
}

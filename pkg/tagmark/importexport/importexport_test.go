package importexport

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tagmark/pkg/tagmark/auth"
	"github.com/mikepea/tagmark/pkg/tagmark/bookmarks"
	"github.com/mikepea/tagmark/pkg/tagmark/database"
	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/mikepea/tagmark/pkg/tagmark/progress"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
	"gorm.io/gorm"
)

const sampleBookmarks = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev" ADD_DATE="1700000000" PRIVATE="0" TAGS="golang,lang">Go</A>
        <DD>The Go programming language
        <DT><A HREF="https://example.com/private" ADD_DATE="1600000000" PRIVATE="1">Private</A>
    </DL><p>
    <DT><A HREF="javascript:void(0)">Bookmarklet</A>
</DL><p>
`

type recordingConn struct {
	mu   sync.Mutex
	msgs []progress.Message
}

func (r *recordingConn) ID() string { return "test-conn" }

func (r *recordingConn) Emit(event string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, v[0].(progress.Message))
}

func (r *recordingConn) Close() error { return nil }

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{Username: username, Password: "hash"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB, hub *progress.Hub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(bookmarks.NewService(store.New(db), hub, 0))

	api := r.Group("/api")
	handler.RegisterRoutes(api)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Username)
	return "Bearer " + token
}

func multipartUpload(t *testing.T, content string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "bookmarks.html")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write([]byte(content))
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestImportBookmarks(t *testing.T) {
	db := setupTestDB(t)
	hub := progress.NewHub()
	router := setupTestRouter(db, hub)
	user := createTestUser(t, db, "alice")

	conn := &recordingConn{}
	if err := hub.Register(user.ID, conn); err != nil {
		t.Fatalf("Failed to register connection: %v", err)
	}

	body, contentType := multipartUpload(t, sampleBookmarks)
	req, _ := http.NewRequest("POST", "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result bookmarks.ImportResult
	json.Unmarshal(resp.Body.Bytes(), &result)
	if result.Imported != 2 || result.Skipped != 1 {
		t.Errorf("Expected 2 imported and 1 skipped, got %+v", result)
	}

	var links []models.Link
	db.Order("saved_at DESC").Find(&links)
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(links))
	}
	if links[0].URL != "https://go.dev" || !links[0].IsPublic || links[0].SavedAt.Unix() != 1700000000 {
		t.Errorf("Unexpected first link: %+v", links[0])
	}
	if links[0].Description != "The Go programming language" {
		t.Errorf("Expected description, got %q", links[0].Description)
	}
	if links[1].IsPublic {
		t.Error("Expected PRIVATE=1 link to be private")
	}

	// One message before the first link, then the final one
	if len(conn.msgs) != 2 {
		t.Fatalf("Expected 2 progress messages, got %d", len(conn.msgs))
	}
	last := conn.msgs[len(conn.msgs)-1]
	if last.Type != progress.TypeImportProgress || last.Data.(progress.ImportProgress).Progress != 100 {
		t.Errorf("Expected final progress 100, got %+v", last)
	}
}

func TestImportRawBody(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, progress.NewHub())
	user := createTestUser(t, db, "alice")

	req, _ := http.NewRequest("POST", "/api/import", strings.NewReader(sampleBookmarks))
	req.Header.Set("Content-Type", "text/html")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 tags, got %d", count)
	}
}

func TestImportMissingFile(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, progress.NewHub())
	user := createTestUser(t, db, "alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("other", "value")
	w.Close()

	req, _ := http.NewRequest("POST", "/api/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestImportRequiresAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, progress.NewHub())

	req, _ := http.NewRequest("POST", "/api/import", strings.NewReader(sampleBookmarks))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestExportBookmarks(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, progress.NewHub())
	user := createTestUser(t, db, "alice")
	other := createTestUser(t, db, "bob")

	req, _ := http.NewRequest("POST", "/api/import", strings.NewReader(sampleBookmarks))
	req.Header.Set("Authorization", getAuthHeader(user))
	router.ServeHTTP(httptest.NewRecorder(), req)

	req, _ = http.NewRequest("GET", "/api/export", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if !strings.HasPrefix(resp.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Expected text/html, got %s", resp.Header().Get("Content-Type"))
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "attachment") {
		t.Error("Expected attachment disposition")
	}

	doc := resp.Body.String()
	if !strings.HasPrefix(doc, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("Expected Netscape header")
	}
	if !strings.Contains(doc, `<DT><A HREF="https://go.dev" ADD_DATE="1700000000" PRIVATE="0" TAGS="golang,lang">Go</A>`) {
		t.Errorf("Expected go.dev entry, got:\n%s", doc)
	}
	if !strings.Contains(doc, `PRIVATE="1">Private</A>`) {
		t.Error("Expected private entry without TAGS")
	}

	// Another user's export is empty
	req, _ = http.NewRequest("GET", "/api/export", nil)
	req.Header.Set("Authorization", getAuthHeader(other))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if strings.Contains(resp.Body.String(), "<DT>") {
		t.Error("Expected no entries for another user")
	}
}

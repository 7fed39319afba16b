package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kbase/internal/db"
	"github.com/kbase/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:kbase-handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewAPI(gdb, t.TempDir(), "/uploads"), gdb
}

func seedTestUser(t *testing.T, gdb *gorm.DB, name, role string) db.User {
	t.Helper()
	user := db.User{Name: name, Email: name + "@example.com", Password: "x", Role: role}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}

func TestGetArticleDraftHiddenFromAnonymous(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedTestUser(t, gdb, "writer", db.RoleUser)

	articles := service.NewArticleService(gdb)
	if _, err := articles.Create(service.ArticleInput{Title: "Secret Draft"}, author.ID); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	c, w := newTestContext(t, http.MethodGet, "/api/articles/secret-draft", nil)
	c.Params = gin.Params{gin.Param{Key: "slug", Value: "secret-draft"}}

	api.GetArticle(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}
}

func TestGetArticleDraftVisibleToAuthor(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedTestUser(t, gdb, "writer", db.RoleUser)

	articles := service.NewArticleService(gdb)
	if _, err := articles.Create(service.ArticleInput{Title: "My Draft"}, author.ID); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	c, w := newTestContext(t, http.MethodGet, "/api/articles/my-draft", nil)
	c.Params = gin.Params{gin.Param{Key: "slug", Value: "my-draft"}}
	c.Set(contextUserIDKey, author.ID)

	api.GetArticle(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetArticleIncrementsViewsAndRendersContent(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedTestUser(t, gdb, "writer", db.RoleUser)

	articles := service.NewArticleService(gdb)
	created, err := articles.Create(service.ArticleInput{
		Title:   "Published Guide",
		Content: "# Heading\nBody text.",
		Status:  db.StatusPublished,
	}, author.ID)
	if err != nil {
		t.Fatalf("create article: %v", err)
	}

	c, w := newTestContext(t, http.MethodGet, "/api/articles/published-guide", nil)
	c.Params = gin.Params{gin.Param{Key: "slug", Value: "published-guide"}}

	api.GetArticle(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var payload struct {
		ContentHTML string `json:"contentHtml"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ContentHTML == "" {
		t.Fatal("expected rendered content html")
	}

	var reloaded db.Article
	if err := gdb.First(&reloaded, created.ID).Error; err != nil {
		t.Fatalf("reload article: %v", err)
	}
	if reloaded.Views != 1 {
		t.Fatalf("expected 1 view, got %d", reloaded.Views)
	}
}

func TestGetArticleMissingSlugReturns404(t *testing.T) {
	api, _ := setupTestAPI(t)

	c, w := newTestContext(t, http.MethodGet, "/api/articles/nope", nil)
	c.Params = gin.Params{gin.Param{Key: "slug", Value: "nope"}}

	api.GetArticle(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestCreateArticleDuplicateSlugReturnsConflict(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedTestUser(t, gdb, "writer", db.RoleUser)

	articles := service.NewArticleService(gdb)
	if _, err := articles.Create(service.ArticleInput{Title: "Same Title"}, author.ID); err != nil {
		t.Fatalf("create first: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"title": "Same Title"})
	c, w := newTestContext(t, http.MethodPost, "/api/articles", body)
	c.Set(contextUserIDKey, author.ID)

	api.CreateArticle(c)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
}

func TestListArticlesAnonymousSeesOnlyPublished(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedTestUser(t, gdb, "writer", db.RoleUser)

	articles := service.NewArticleService(gdb)
	if _, err := articles.Create(service.ArticleInput{Title: "Visible", Status: db.StatusPublished}, author.ID); err != nil {
		t.Fatalf("create published: %v", err)
	}
	if _, err := articles.Create(service.ArticleInput{Title: "Hidden"}, author.ID); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	// 匿名请求即使显式要求 draft 也只能看到已发布文章
	c, w := newTestContext(t, http.MethodGet, "/api/articles?status=draft", nil)

	api.ListArticles(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var payload struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Pagination.Total != 1 || len(payload.Data) != 1 {
		t.Fatalf("expected only the published article, got %+v", payload)
	}
	if payload.Data[0].Title != "Visible" {
		t.Fatalf("unexpected article %q", payload.Data[0].Title)
	}
}

func TestListArticlesAdminCanFilterStatus(t *testing.T) {
	api, gdb := setupTestAPI(t)
	admin := seedTestUser(t, gdb, "boss", db.RoleAdmin)

	articles := service.NewArticleService(gdb)
	if _, err := articles.Create(service.ArticleInput{Title: "Visible", Status: db.StatusPublished}, admin.ID); err != nil {
		t.Fatalf("create published: %v", err)
	}
	if _, err := articles.Create(service.ArticleInput{Title: "Hidden"}, admin.ID); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	c, w := newTestContext(t, http.MethodGet, "/api/articles?status=draft", nil)
	c.Set(contextUserIDKey, admin.ID)
	c.Set(contextRoleKey, db.RoleAdmin)

	api.ListArticles(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var payload struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Title != "Hidden" {
		t.Fatalf("expected the draft for admin filter, got %+v", payload.Data)
	}
}

func TestRateArticleInvalidValue(t *testing.T) {
	api, gdb := setupTestAPI(t)
	rater := seedTestUser(t, gdb, "rater", db.RoleUser)

	body, _ := json.Marshal(map[string]any{"rating": 9})
	c, w := newTestContext(t, http.MethodPost, "/api/articles/1/rate", body)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "1"}}
	c.Set(contextUserIDKey, rater.ID)

	api.RateArticle(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestSearchArticlesEmptyKeyword(t *testing.T) {
	api, _ := setupTestAPI(t)

	c, w := newTestContext(t, http.MethodGet, "/api/articles/search?keyword=", nil)

	api.SearchArticles(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

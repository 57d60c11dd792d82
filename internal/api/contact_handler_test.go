package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rayzum/internal/database"
	"rayzum/internal/events"
	"rayzum/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeAuth 以固定 userID 取代 JWT 中间件，测试只关心处理器行为。
func fakeAuth(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newContactTestRouter(t *testing.T, userID uint) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	dataStore := store.New(db)
	publisher := events.NewPublisher(nil, nil)
	handler := NewNameHandler(dataStore, publisher, nil)

	router := gin.New()
	group := router.Group("/v1/names")
	group.Use(fakeAuth(userID))
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.PUT("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.POST("/:id/default", handler.SetDefault)
	}
	return router, dataStore
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestContactHandlerCreateAndConflict(t *testing.T) {
	router, _ := newContactTestRouter(t, 1)

	rec := doJSON(t, router, http.MethodPost, "/v1/names", gin.H{"value": "Ada Lovelace"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}

	var created store.ContactView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Value != "Ada Lovelace" {
		t.Fatalf("created value = %q", created.Value)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/names", gin.H{"value": "Ada Lovelace"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/names", gin.H{"value": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty value status = %d, want 400", rec.Code)
	}
}

func TestContactHandlerSetDefaultAndList(t *testing.T) {
	router, _ := newContactTestRouter(t, 1)

	rec := doJSON(t, router, http.MethodPost, "/v1/names", gin.H{"value": "Ada Lovelace"})
	var created store.ContactView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/names/%d/default", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("set default status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/names", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var views []store.ContactView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 1 || !views[0].IsDefault {
		t.Fatalf("list = %+v, want single default entry", views)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/names/999/default", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing default status = %d, want 404", rec.Code)
	}
}

func TestContactHandlerDelete(t *testing.T) {
	router, _ := newContactTestRouter(t, 1)

	rec := doJSON(t, router, http.MethodPost, "/v1/names", gin.H{"value": "Ada Lovelace"})
	var created store.ContactView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/names/%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/names/%d", created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/v1/names/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

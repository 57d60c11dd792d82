package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"rayzum/internal/database"
	"rayzum/internal/events"
	"rayzum/internal/store"
)

func newResumeTestRouter(t *testing.T, userID uint) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	dataStore := store.New(db)
	publisher := events.NewPublisher(nil, nil)
	handler := NewResumeHandler(dataStore, publisher, nil)

	router := gin.New()
	group := router.Group("/v1/resumes")
	group.Use(fakeAuth(userID))
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/:id", handler.Get)
		group.PUT("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.GET("/:id/print", handler.Print)
	}
	return router, dataStore
}

func doRawJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestResumeHandlerCreateAcceptsBareTemplateIDs(t *testing.T) {
	router, dataStore := newResumeTestRouter(t, 1)
	ctx := context.Background()

	exp, err := dataStore.CreateExperience(ctx, 1, "Engineer", "Acme Corp", "2023-01", nil, []string{"First"})
	if err != nil {
		t.Fatalf("seed experience: %v", err)
	}

	// experience_ids 支持裸 id 与对象两种形态混用
	body := fmt.Sprintf(`{"title":"Backend","experience_ids":[%d]}`, exp.ID)
	rec := doRawJSON(t, router, http.MethodPost, "/v1/resumes", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}

	var view store.ResumeView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.ExperienceIDs) != 1 || view.ExperienceIDs[0].TemplateID != exp.ID {
		t.Fatalf("experience refs = %+v", view.ExperienceIDs)
	}

	rec = doRawJSON(t, router, http.MethodPost, "/v1/resumes", `{"title":"Backend"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate title status = %d, want 409", rec.Code)
	}
}

func TestResumeHandlerUpdateTriStateContactRefs(t *testing.T) {
	router, dataStore := newResumeTestRouter(t, 1)
	ctx := context.Background()

	name, err := store.CreateContact[database.Name](ctx, dataStore, 1, store.KindName, "Ada Lovelace")
	if err != nil {
		t.Fatalf("seed name: %v", err)
	}
	resume, err := dataStore.CreateResume(ctx, 1, "Backend", &name.ID, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("seed resume: %v", err)
	}

	// 不携带 name_id：保持原引用
	rec := doRawJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/resumes/%d", resume.ID), `{"title":"Platform"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var view store.ResumeView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.NameID == nil || *view.NameID != name.ID {
		t.Fatalf("name_id = %v, want %d kept", view.NameID, name.ID)
	}

	// 显式 null：清空引用
	rec = doRawJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/resumes/%d", resume.ID), `{"name_id":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.NameID != nil {
		t.Fatalf("name_id = %v, want null", view.NameID)
	}
}

func TestResumeHandlerUpdateReplacesExperienceList(t *testing.T) {
	router, dataStore := newResumeTestRouter(t, 1)
	ctx := context.Background()

	e1, err := dataStore.CreateExperience(ctx, 1, "Engineer", "Acme Corp", "2023-01", nil, nil)
	if err != nil {
		t.Fatalf("seed experience: %v", err)
	}
	e2, err := dataStore.CreateExperience(ctx, 1, "Manager", "Acme Corp", "2024-01", nil, nil)
	if err != nil {
		t.Fatalf("seed experience: %v", err)
	}
	resume, err := dataStore.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]store.ExperienceInstanceInput{{TemplateID: e1.ID}, {TemplateID: e2.ID}}, nil)
	if err != nil {
		t.Fatalf("seed resume: %v", err)
	}

	body := fmt.Sprintf(`{"experience_ids":[{"template_id":%d}]}`, e2.ID)
	rec := doRawJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/resumes/%d", resume.ID), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var view store.ResumeView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.ExperienceIDs) != 1 || view.ExperienceIDs[0].TemplateID != e2.ID {
		t.Fatalf("experience refs = %+v, want only e2", view.ExperienceIDs)
	}
}

func TestResumeHandlerPrint(t *testing.T) {
	router, dataStore := newResumeTestRouter(t, 1)
	ctx := context.Background()

	exp, err := dataStore.CreateExperience(ctx, 1, "Engineer", "Acme Corp", "2023-01", nil, []string{"First", "Second"})
	if err != nil {
		t.Fatalf("seed experience: %v", err)
	}
	resume, err := dataStore.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]store.ExperienceInstanceInput{{TemplateID: exp.ID, SelectedHighlightIDs: []uint{exp.Highlights[0].ID}}}, nil)
	if err != nil {
		t.Fatalf("seed resume: %v", err)
	}

	rec := doRawJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/print", resume.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("print status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var view store.PrintView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.Experience) != 1 || len(view.Experience[0].Highlights) != 1 {
		t.Fatalf("print view = %+v, want one experience with one highlight", view)
	}

	rec = doRawJSON(t, router, http.MethodGet, "/v1/resumes/999/print", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing print status = %d, want 404", rec.Code)
	}
}

func TestResumeHandlerDelete(t *testing.T) {
	router, dataStore := newResumeTestRouter(t, 1)

	resume, err := dataStore.CreateResume(context.Background(), 1, "Backend", nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("seed resume: %v", err)
	}

	rec := doRawJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/resumes/%d", resume.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doRawJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/resumes/%d", resume.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

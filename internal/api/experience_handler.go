package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"rayzum/internal/api/middleware"
	"rayzum/internal/events"
	"rayzum/internal/store"
	"rayzum/internal/tasks"
)

type ExperienceHandler struct {
	store       *store.Store
	publisher   *events.Publisher
	asynqClient *asynq.Client
}

func NewExperienceHandler(s *store.Store, publisher *events.Publisher, asynqClient *asynq.Client) *ExperienceHandler {
	return &ExperienceHandler{store: s, publisher: publisher, asynqClient: asynqClient}
}

// highlightInput 兼容两种客户端写法：裸字符串或 {"text": "..."} 对象。
type highlightInput struct {
	Text string
}

func (h *highlightInput) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		h.Text = text
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	h.Text = obj.Text
	return nil
}

func highlightTexts(inputs []highlightInput) []string {
	texts := make([]string, 0, len(inputs))
	for _, input := range inputs {
		texts = append(texts, input.Text)
	}
	return texts
}

type createExperienceRequest struct {
	JobTitle    string           `json:"job_title" binding:"required"`
	CompanyName string           `json:"company_name" binding:"required"`
	StartDate   string           `json:"start_date" binding:"required"`
	EndDate     *string          `json:"end_date"`
	Highlights  []highlightInput `json:"highlights"`
}

type updateExperienceRequest struct {
	JobTitle    *string           `json:"job_title"`
	CompanyName *string           `json:"company_name"`
	StartDate   *string           `json:"start_date"`
	EndDate     json.RawMessage   `json:"end_date"`
	Highlights  *[]highlightInput `json:"highlights"`
}

func (h *ExperienceHandler) List(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	views, err := h.store.ListExperiencesWithHighlights(c.Request.Context(), ownerID)
	if err != nil {
		Internal(c, "failed to list experiences")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ExperienceHandler) Get(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid experience id")
		return
	}

	view, err := h.store.GetExperienceWithHighlights(c.Request.Context(), ownerID, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "experience not found")
		default:
			Internal(c, "failed to load experience")
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ExperienceHandler) Create(c *gin.Context) {
	var req createExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "job_title, company_name and start_date are required")
		return
	}

	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.store.CreateExperience(c.Request.Context(), ownerID,
		req.JobTitle, req.CompanyName, req.StartDate, req.EndDate, highlightTexts(req.Highlights))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, "job_title, company_name and start_date are required")
		default:
			Internal(c, "failed to create experience")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "experience", events.ActionCreated, view.ID)
	c.JSON(http.StatusCreated, view)
}

// Update 部分更新模板字段；请求带 highlights 时整体替换要点，
// 已有简历对被替换要点的选择将悬空，交给巡检任务统计。
func (h *ExperienceHandler) Update(c *gin.Context) {
	var req updateExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid experience id")
		return
	}

	endDate, endDateSet, err := decodeOptionalString(req.EndDate)
	if err != nil {
		BadRequest(c, "end_date must be a string or null")
		return
	}

	patch := store.ExperiencePatch{
		JobTitle:    req.JobTitle,
		CompanyName: req.CompanyName,
		StartDate:   req.StartDate,
		EndDate:     endDate,
		EndDateSet:  endDateSet,
	}
	if req.Highlights != nil {
		texts := highlightTexts(*req.Highlights)
		patch.Highlights = &texts
	}

	view, err := h.store.UpdateExperience(c.Request.Context(), ownerID, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "experience not found")
		default:
			Internal(c, "failed to update experience")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "experience", events.ActionUpdated, id)
	if patch.Highlights != nil {
		h.enqueueSweep(c, ownerID)
	}
	c.JSON(http.StatusOK, view)
}

// Delete 级联删除要点与所有简历实例行，再删除模板。
func (h *ExperienceHandler) Delete(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid experience id")
		return
	}

	if err := h.store.DeleteExperience(c.Request.Context(), ownerID, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "experience not found")
		default:
			Internal(c, "failed to delete experience")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "experience", events.ActionDeleted, id)
	h.enqueueSweep(c, ownerID)
	c.Status(http.StatusNoContent)
}

func (h *ExperienceHandler) enqueueSweep(c *gin.Context, ownerID uint) {
	if h.asynqClient == nil {
		return
	}
	task, err := tasks.NewIntegritySweepTask(ownerID, middleware.GetCorrelationID(c))
	if err != nil {
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		middleware.LoggerFromContext(c).Warn("enqueue integrity sweep failed", "error", err)
	}
}

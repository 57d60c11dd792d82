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

type ResumeHandler struct {
	store       *store.Store
	publisher   *events.Publisher
	asynqClient *asynq.Client
}

func NewResumeHandler(s *store.Store, publisher *events.Publisher, asynqClient *asynq.Client) *ResumeHandler {
	return &ResumeHandler{store: s, publisher: publisher, asynqClient: asynqClient}
}

// resumeExperienceInput 兼容两种客户端写法：裸模板 id，
// 或携带要点子集的 {"template_id": ..., "selected_highlight_ids": [...]} 对象。
type resumeExperienceInput struct {
	TemplateID           uint
	SelectedHighlightIDs []uint
}

func (r *resumeExperienceInput) UnmarshalJSON(data []byte) error {
	var id uint
	if err := json.Unmarshal(data, &id); err == nil {
		r.TemplateID = id
		r.SelectedHighlightIDs = nil
		return nil
	}
	var obj struct {
		TemplateID           uint   `json:"template_id"`
		SelectedHighlightIDs []uint `json:"selected_highlight_ids"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.TemplateID = obj.TemplateID
	r.SelectedHighlightIDs = obj.SelectedHighlightIDs
	return nil
}

func experienceInstanceInputs(inputs []resumeExperienceInput) []store.ExperienceInstanceInput {
	instances := make([]store.ExperienceInstanceInput, 0, len(inputs))
	for _, input := range inputs {
		instances = append(instances, store.ExperienceInstanceInput{
			TemplateID:           input.TemplateID,
			SelectedHighlightIDs: input.SelectedHighlightIDs,
		})
	}
	return instances
}

type createResumeRequest struct {
	Title         string                  `json:"title" binding:"required"`
	NameID        *uint                   `json:"name_id"`
	PhoneID       *uint                   `json:"phone_id"`
	EmailID       *uint                   `json:"email_id"`
	ExperienceIDs []resumeExperienceInput `json:"experience_ids"`
	EducationIDs  []uint                  `json:"education_ids"`
}

type updateResumeRequest struct {
	Title         *string                  `json:"title"`
	NameID        json.RawMessage          `json:"name_id"`
	PhoneID       json.RawMessage          `json:"phone_id"`
	EmailID       json.RawMessage          `json:"email_id"`
	ExperienceIDs *[]resumeExperienceInput `json:"experience_ids"`
	EducationIDs  *[]uint                  `json:"education_ids"`
}

func (h *ResumeHandler) List(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	views, err := h.store.ListResumesWithDetails(c.Request.Context(), ownerID)
	if err != nil {
		Internal(c, "failed to list resumes")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ResumeHandler) Get(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid resume id")
		return
	}

	view, err := h.store.GetResumeWithDetails(c.Request.Context(), ownerID, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to load resume")
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ResumeHandler) Create(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "title is required")
		return
	}

	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.store.CreateResume(c.Request.Context(), ownerID, req.Title,
		req.NameID, req.PhoneID, req.EmailID,
		experienceInstanceInputs(req.ExperienceIDs), req.EducationIDs)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, "title is required")
		case errors.Is(err, store.ErrConflict):
			Conflict(c, "a resume with this title already exists")
		default:
			Internal(c, "failed to create resume")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "resume", events.ActionCreated, view.ID)
	c.JSON(http.StatusCreated, view)
}

// Update 部分更新简历。三个联系信息引用为三态字段：
// 缺省保持原值，null 或 0 清空，其余写入具体 id。
func (h *ResumeHandler) Update(c *gin.Context) {
	var req updateResumeRequest
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
		BadRequest(c, "invalid resume id")
		return
	}

	patch := store.ResumePatch{Title: req.Title}
	var err error
	if patch.NameID, patch.NameIDSet, err = decodeOptionalID(req.NameID); err != nil {
		BadRequest(c, "name_id must be a number or null")
		return
	}
	if patch.PhoneID, patch.PhoneIDSet, err = decodeOptionalID(req.PhoneID); err != nil {
		BadRequest(c, "phone_id must be a number or null")
		return
	}
	if patch.EmailID, patch.EmailIDSet, err = decodeOptionalID(req.EmailID); err != nil {
		BadRequest(c, "email_id must be a number or null")
		return
	}
	if req.ExperienceIDs != nil {
		instances := experienceInstanceInputs(*req.ExperienceIDs)
		patch.Experience = &instances
	}
	if req.EducationIDs != nil {
		patch.Education = req.EducationIDs
	}

	view, err := h.store.UpdateResume(c.Request.Context(), ownerID, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "resume not found")
		case errors.Is(err, store.ErrConflict):
			Conflict(c, "a resume with this title already exists")
		default:
			Internal(c, "failed to update resume")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "resume", events.ActionUpdated, id)
	c.JSON(http.StatusOK, view)
}

func (h *ResumeHandler) Delete(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid resume id")
		return
	}

	if err := h.store.DeleteResume(c.Request.Context(), ownerID, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to delete resume")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "resume", events.ActionDeleted, id)
	h.enqueueSweep(c, ownerID)
	c.Status(http.StatusNoContent)
}

// Print 返回渲染用的完整视图：悬空引用被剔除，
// 要点子集与模板现存要点取交集。
func (h *ResumeHandler) Print(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid resume id")
		return
	}

	view, err := h.store.BuildPrintView(c.Request.Context(), ownerID, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to build print view")
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ResumeHandler) enqueueSweep(c *gin.Context, ownerID uint) {
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

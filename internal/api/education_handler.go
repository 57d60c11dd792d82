package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"rayzum/internal/api/middleware"
	"rayzum/internal/database"
	"rayzum/internal/events"
	"rayzum/internal/store"
	"rayzum/internal/tasks"
)

type EducationHandler struct {
	store       *store.Store
	publisher   *events.Publisher
	asynqClient *asynq.Client
}

func NewEducationHandler(s *store.Store, publisher *events.Publisher, asynqClient *asynq.Client) *EducationHandler {
	return &EducationHandler{store: s, publisher: publisher, asynqClient: asynqClient}
}

type createEducationRequest struct {
	School string `json:"school" binding:"required"`
	Degree string `json:"degree" binding:"required"`
	Year   string `json:"year" binding:"required"`
}

type updateEducationRequest struct {
	School *string `json:"school"`
	Degree *string `json:"degree"`
	Year   *string `json:"year"`
}

func (h *EducationHandler) List(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	views, err := h.store.ListEducationItems(c.Request.Context(), ownerID)
	if err != nil {
		Internal(c, "failed to list education items")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *EducationHandler) Create(c *gin.Context) {
	var req createEducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "school, degree and year are required")
		return
	}

	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.store.CreateEducationItem(c.Request.Context(), ownerID, req.School, req.Degree, req.Year)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, "school, degree and year are required")
		case errors.Is(err, store.ErrConflict):
			Conflict(c, "an identical education item already exists")
		default:
			Internal(c, "failed to create education item")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "education_item", events.ActionCreated, view.ID)
	c.JSON(http.StatusCreated, view)
}

func (h *EducationHandler) Update(c *gin.Context) {
	var req updateEducationRequest
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
		BadRequest(c, "invalid education item id")
		return
	}

	patch := store.EducationPatch{School: req.School, Degree: req.Degree, Year: req.Year}
	view, err := h.store.UpdateEducationItem(c.Request.Context(), ownerID, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, "school, degree and year must not be empty")
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "education item not found")
		case errors.Is(err, store.ErrConflict):
			Conflict(c, "an identical education item already exists")
		default:
			Internal(c, "failed to update education item")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "education_item", events.ActionUpdated, id)
	c.JSON(http.StatusOK, view)
}

// Delete 删除教育经历并级联清理所有简历的关联行。
func (h *EducationHandler) Delete(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid education item id")
		return
	}

	if err := h.store.DeleteEducationItem(c.Request.Context(), ownerID, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "education item not found")
		default:
			Internal(c, "failed to delete education item")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "education_item", events.ActionDeleted, id)
	h.enqueueSweep(c, ownerID)
	c.Status(http.StatusNoContent)
}

func (h *EducationHandler) SetDefault(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid education item id")
		return
	}

	err := store.SetDefault[database.EducationItem](c.Request.Context(), h.store, ownerID, database.EntityEducation, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "education item not found")
		default:
			Internal(c, "failed to set default education item")
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, "education_item", events.ActionUpdated, id)
	c.JSON(http.StatusOK, gin.H{"id": id, "is_default": true})
}

func (h *EducationHandler) enqueueSweep(c *gin.Context, ownerID uint) {
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

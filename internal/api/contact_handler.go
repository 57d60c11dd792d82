package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"rayzum/internal/api/middleware"
	"rayzum/internal/database"
	"rayzum/internal/events"
	"rayzum/internal/store"
	"rayzum/internal/tasks"
)

// ContactHandler 以统一的路由形态服务三类联系信息资源。
// 具体类别差异（表、列、默认项类别）由构造时注入的闭包封装。
type ContactHandler struct {
	resource    string
	list        func(ctx context.Context, ownerID uint) ([]store.ContactView, error)
	create      func(ctx context.Context, ownerID uint, value string) (*store.ContactView, error)
	update      func(ctx context.Context, ownerID, id uint, value string) (*store.ContactView, error)
	remove      func(ctx context.Context, ownerID, id uint) error
	setDefault  func(ctx context.Context, ownerID, id uint) error
	publisher   *events.Publisher
	asynqClient *asynq.Client
}

// NewNameHandler 构造姓名资源处理器。
func NewNameHandler(s *store.Store, publisher *events.Publisher, asynqClient *asynq.Client) *ContactHandler {
	return newContactHandler[database.Name](s, store.KindName, "name", publisher, asynqClient)
}

// NewPhoneHandler 构造电话资源处理器。
func NewPhoneHandler(s *store.Store, publisher *events.Publisher, asynqClient *asynq.Client) *ContactHandler {
	return newContactHandler[database.Phone](s, store.KindPhone, "phone", publisher, asynqClient)
}

// NewEmailHandler 构造邮箱资源处理器。
func NewEmailHandler(s *store.Store, publisher *events.Publisher, asynqClient *asynq.Client) *ContactHandler {
	return newContactHandler[database.Email](s, store.KindEmail, "email", publisher, asynqClient)
}

func newContactHandler[T database.Name | database.Phone | database.Email](s *store.Store, kind store.ContactKind, resource string, publisher *events.Publisher, asynqClient *asynq.Client) *ContactHandler {
	return &ContactHandler{
		resource: resource,
		list: func(ctx context.Context, ownerID uint) ([]store.ContactView, error) {
			return store.ListContacts[T](ctx, s, ownerID, kind)
		},
		create: func(ctx context.Context, ownerID uint, value string) (*store.ContactView, error) {
			return store.CreateContact[T](ctx, s, ownerID, kind, value)
		},
		update: func(ctx context.Context, ownerID, id uint, value string) (*store.ContactView, error) {
			return store.UpdateContact[T](ctx, s, ownerID, kind, id, value)
		},
		remove: func(ctx context.Context, ownerID, id uint) error {
			return store.DeleteContact[T](ctx, s, ownerID, kind, id)
		},
		setDefault: func(ctx context.Context, ownerID, id uint) error {
			return store.SetDefault[T](ctx, s, ownerID, kind.EntityType, id)
		},
		publisher:   publisher,
		asynqClient: asynqClient,
	}
}

type contactRequest struct {
	Value string `json:"value" binding:"required"`
}

// List 返回全部记录，按创建时间倒序，附带 is_default。
func (h *ContactHandler) List(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	views, err := h.list(c.Request.Context(), ownerID)
	if err != nil {
		Internal(c, "failed to list "+h.resource+"s")
		return
	}
	c.JSON(http.StatusOK, views)
}

// Create 插入一条新记录，值重复返回 409。
func (h *ContactHandler) Create(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, h.resource+" value is required")
		return
	}

	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.create(c.Request.Context(), ownerID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, h.resource+" value is required")
		case errors.Is(err, store.ErrConflict):
			Conflict(c, "a "+h.resource+" with this value already exists")
		default:
			Internal(c, "failed to create "+h.resource)
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, h.resource, events.ActionCreated, view.ID)
	c.JSON(http.StatusCreated, view)
}

// Update 修改记录的值。
func (h *ContactHandler) Update(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, h.resource+" value is required")
		return
	}

	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid "+h.resource+" id")
		return
	}

	view, err := h.update(c.Request.Context(), ownerID, id, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, h.resource+" value is required")
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, h.resource+" not found")
		case errors.Is(err, store.ErrConflict):
			Conflict(c, "a "+h.resource+" with this value already exists")
		default:
			Internal(c, "failed to update "+h.resource)
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, h.resource, events.ActionUpdated, id)
	c.JSON(http.StatusOK, view)
}

// Delete 删除记录。简历对它的弱引用保持原样，随后入队一次巡检。
func (h *ContactHandler) Delete(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid "+h.resource+" id")
		return
	}

	if err := h.remove(c.Request.Context(), ownerID, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, h.resource+" not found")
		default:
			Internal(c, "failed to delete "+h.resource)
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, h.resource, events.ActionDeleted, id)
	h.enqueueSweep(c, ownerID)
	c.Status(http.StatusNoContent)
}

// SetDefault 将该记录标为类别默认项（last-writer-wins）。
func (h *ContactHandler) SetDefault(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := idParam(c)
	if !ok {
		BadRequest(c, "invalid "+h.resource+" id")
		return
	}

	if err := h.setDefault(c.Request.Context(), ownerID, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, h.resource+" not found")
		default:
			Internal(c, "failed to set default "+h.resource)
		}
		return
	}

	h.publisher.Publish(c.Request.Context(), ownerID, h.resource, events.ActionUpdated, id)
	c.JSON(http.StatusOK, gin.H{"id": id, "is_default": true})
}

func (h *ContactHandler) enqueueSweep(c *gin.Context, ownerID uint) {
	if h.asynqClient == nil {
		return
	}
	task, err := tasks.NewIntegritySweepTask(ownerID, middleware.GetCorrelationID(c))
	if err != nil {
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		middleware.LoggerFromContext(c).Warn("enqueue integrity sweep failed", slog.Any("error", err))
	}
}

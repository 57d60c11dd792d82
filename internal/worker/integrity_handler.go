package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"rayzum/internal/metrics"
	"rayzum/internal/store"
	"rayzum/internal/tasks"
)

// IntegrityTaskHandler 消费 integrity:sweep 任务：统计悬空/陈旧引用
// 并写入指标。只读，不修复数据——引用清理与否是待定的产品决策。
type IntegrityTaskHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewIntegrityTaskHandler 构造巡检任务处理器。
func NewIntegrityTaskHandler(db *gorm.DB, logger *slog.Logger) *IntegrityTaskHandler {
	return &IntegrityTaskHandler{
		store:  store.New(db),
		logger: logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *IntegrityTaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload tasks.IntegritySweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal integrity sweep payload: %w", err)
	}

	logger := h.logger.With(
		slog.Uint64("owner_id", uint64(payload.OwnerID)),
		slog.String("correlation_id", payload.CorrelationID),
	)

	report, err := h.store.IntegrityReport(ctx, payload.OwnerID)
	if err != nil {
		logger.Error("integrity sweep failed", slog.Any("error", err))
		return fmt.Errorf("integrity sweep owner %d: %w", payload.OwnerID, err)
	}

	metrics.RecordIntegrityReport(payload.OwnerID, report)
	logger.Info("integrity sweep completed",
		slog.Int("dangling_name_refs", report.DanglingNameRefs),
		slog.Int("dangling_phone_refs", report.DanglingPhoneRefs),
		slog.Int("dangling_email_refs", report.DanglingEmailRefs),
		slog.Int("stale_highlight_refs", report.StaleHighlightRefs),
		slog.Int("orphan_instances", report.OrphanInstances),
		slog.Int("orphan_education_links", report.OrphanEducationLinks),
	)
	return nil
}

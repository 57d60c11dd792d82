package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeIntegritySweep = "integrity:sweep"
)

// IntegritySweepPayload 描述一次引用完整性巡检所需的最小信息。
type IntegritySweepPayload struct {
	OwnerID       uint   `json:"owner_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewIntegritySweepTask 构造一个新的巡检任务。删除路径在可能产生
// 悬空引用后入队。
func NewIntegritySweepTask(ownerID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IntegritySweepPayload{
		OwnerID:       ownerID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeIntegritySweep, payload), nil
}

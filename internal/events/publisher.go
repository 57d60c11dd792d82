package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// 浏览器端通过 storage 事件感知数据变化；服务端等价物是每用户一个
// Redis Pub/Sub 频道，WebSocket 连接订阅后转发给前端触发重新拉取。
const channelPrefix = "resume_sync:"

// ChangeMessage 描述一次数据变更。字段名与前端解析保持一致。
type ChangeMessage struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	ID       uint   `json:"id"`
}

// 变更动作。
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Publisher 将变更事件发布到所属用户的频道。
type Publisher struct {
	redis  redis.UniversalClient
	logger *slog.Logger
}

// NewPublisher 构造 Publisher。
func NewPublisher(redisClient redis.UniversalClient, logger *slog.Logger) *Publisher {
	return &Publisher{redis: redisClient, logger: logger}
}

// Channel 返回指定用户的变更频道名。
func Channel(ownerID uint) string {
	return fmt.Sprintf("%s%d", channelPrefix, ownerID)
}

// Publish 发布一条变更事件。发布失败只记日志，不影响主流程：
// 变更通知是尽力而为的，前端始终可以主动刷新。
func (p *Publisher) Publish(ctx context.Context, ownerID uint, resource, action string, id uint) {
	if p == nil || p.redis == nil {
		return
	}

	payload, err := json.Marshal(ChangeMessage{Resource: resource, Action: action, ID: id})
	if err != nil {
		p.log().Error("marshal change message failed", slog.Any("error", err))
		return
	}

	if err := p.redis.Publish(ctx, Channel(ownerID), payload).Err(); err != nil {
		p.log().Warn("publish change message failed",
			slog.String("resource", resource),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

func (p *Publisher) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

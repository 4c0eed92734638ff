package repository

import (
	"context"

	"bookforge/internal/domain/entity"
)

// EventPublisher 运行事件发布端口，发布失败不得中断生成
type EventPublisher interface {
	// PublishRunEvent 发布一条运行生命周期事件
	PublishRunEvent(ctx context.Context, event *entity.RunEvent) error
}

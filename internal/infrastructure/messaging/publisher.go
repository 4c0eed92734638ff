// Package messaging 把运行生命周期事件发布到 Redis Stream
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookforge/internal/domain/entity"
	"bookforge/internal/domain/repository"
)

var tracer = otel.Tracer("messaging")

const (
	// DefaultStream 事件流名称
	DefaultStream = "bookforge:events"
	// defaultMaxLen 流长度上限，XAdd 近似裁剪
	defaultMaxLen = 100000
)

// Publisher 事件发布者，外部消费者通过 XRead 订阅进度
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ repository.EventPublisher = (*Publisher)(nil)

// NewPublisher 创建事件发布者
func NewPublisher(client *redis.Client, stream string, maxLen int64) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Publisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// PublishRunEvent 发布一条运行生命周期事件
func (p *Publisher) PublishRunEvent(ctx context.Context, event *entity.RunEvent) error {
	ctx, span := tracer.Start(ctx, "publisher.PublishRunEvent",
		trace.WithAttributes(
			attribute.String("stream", p.stream),
			attribute.String("run.id", event.RunID),
			attribute.String("event.type", string(event.Type)),
		))
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type": string(event.Type),
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", id))
	return nil
}

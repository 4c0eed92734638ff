package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookforge/internal/domain/entity"
	"bookforge/internal/domain/repository"
)

const snapshotKeyPrefix = "bookforge:run:"

// SnapshotStore 基于 Redis 的运行快照存储
type SnapshotStore struct {
	client *Client
	ttl    time.Duration
}

var _ repository.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore 创建快照存储，ttl 为 0 表示永不过期
func NewSnapshotStore(client *Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(runID string) string {
	return snapshotKeyPrefix + runID
}

// Save 序列化并写入快照
func (s *SnapshotStore) Save(ctx context.Context, snapshot *entity.RunSnapshot) error {
	ctx, span := tracer.Start(ctx, "snapshot.Save",
		trace.WithAttributes(attribute.String("run.id", snapshot.ID)))
	defer span.End()

	data, err := json.Marshal(snapshot)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(snapshot.ID), data, s.ttl)
}

// Get 读取快照，不存在返回 (nil, nil)
func (s *SnapshotStore) Get(ctx context.Context, runID string) (*entity.RunSnapshot, error) {
	ctx, span := tracer.Start(ctx, "snapshot.Get",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	data, err := s.client.GetBytes(ctx, snapshotKey(runID))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}

	var snapshot entity.RunSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", runID, err)
	}
	return &snapshot, nil
}

// Delete 删除快照
func (s *SnapshotStore) Delete(ctx context.Context, runID string) error {
	return s.client.Del(ctx, snapshotKey(runID))
}

// List 列出全部快照对应的运行 ID
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.ScanKeys(ctx, snapshotKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, snapshotKeyPrefix))
	}
	return ids, nil
}

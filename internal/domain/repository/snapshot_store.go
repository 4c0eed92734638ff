// Package repository 定义仓储接口
package repository

import (
	"context"

	"bookforge/internal/domain/entity"
)

// SnapshotStore 运行快照存储
// 每章成功后写入，崩溃后最多丢失一章
type SnapshotStore interface {
	// Save 保存运行快照
	Save(ctx context.Context, snapshot *entity.RunSnapshot) error
	// Get 按运行 ID 获取快照，不存在返回 (nil, nil)
	Get(ctx context.Context, runID string) (*entity.RunSnapshot, error)
	// Delete 删除运行快照
	Delete(ctx context.Context, runID string) error
	// List 列出全部快照 ID，供启动时恢复
	List(ctx context.Context) ([]string, error)
}

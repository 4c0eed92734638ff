package repository

import (
	"context"

	"bookforge/internal/domain/entity"
)

// RunMirror 运行记录的尽力而为持久化镜像
// 所有失败只记 WARN 日志，绝不中断生成
type RunMirror interface {
	// CreateRun 记录新运行
	CreateRun(ctx context.Context, run *entity.RunSnapshot) error
	// AttachOutline 记录大纲
	AttachOutline(ctx context.Context, runID string, outline *entity.BookOutline) error
	// AppendChapter 记录一章
	AppendChapter(ctx context.Context, runID string, chapter *entity.ChapterContent) error
	// MarkComplete 记录运行完成
	MarkComplete(ctx context.Context, runID string) error
	// MarkErrored 记录运行失败
	MarkErrored(ctx context.Context, runID string, reason string) error
}

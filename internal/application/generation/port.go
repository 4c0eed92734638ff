// Package generation 实现书籍生成的编排逻辑：回退链与可恢复的章节序列
package generation

import (
	"context"

	"bookforge/internal/domain/entity"
)

// Provider LLM 后端适配器接口
// 适配器无调用间状态，超时与重试在适配器内部处理
type Provider interface {
	// Name 后端标识，用于配置引用与日志
	Name() string
	// GenerateOutline 生成书籍大纲（结构化 JSON 输出）
	GenerateOutline(ctx context.Context, opts entity.GenerationOptions) (*entity.BookOutline, error)
	// GenerateChapter 生成单章 Markdown 正文
	GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, error)
	// GenerateCoverImage 生成封面图片
	GenerateCoverImage(ctx context.Context, prompt string, sizeTier string) (*entity.ImageData, error)
	// EditCoverImage 基于已有图片与新提示词重新生成封面
	EditCoverImage(ctx context.Context, image *entity.ImageData, prompt string) (*entity.ImageData, error)
}

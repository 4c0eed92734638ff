package llm

import (
	"context"
	"errors"
	"strings"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

// errImageUnsupported 后端不支持图片生成
var errImageUnsupported = errors.New("image generation not supported")

// completer 文本补全后端，各 SDK 适配器实现
type completer interface {
	Name() string
	complete(ctx context.Context, system, user string) (string, error)
}

// imageGenerator 支持图片生成的后端额外实现
type imageGenerator interface {
	generateImage(ctx context.Context, prompt, sizeTier string) (*entity.ImageData, error)
}

// textProvider 把 completer 包装为完整的 Provider
// 超时、重试与输出校验在这里统一处理，后端只负责一次调用
type textProvider struct {
	backend completer
	policy  callPolicy
}

// newTextProvider 创建适配器
func newTextProvider(backend completer, policy callPolicy) *textProvider {
	if policy.sleep == nil {
		policy.sleep = sleepWithContext
	}
	return &textProvider{backend: backend, policy: policy}
}

// Name 后端标识
func (t *textProvider) Name() string {
	return t.backend.Name()
}

// GenerateOutline 生成并解析书籍大纲
func (t *textProvider) GenerateOutline(ctx context.Context, opts entity.GenerationOptions) (*entity.BookOutline, error) {
	var outline *entity.BookOutline
	err := t.policy.do(ctx, t.Name(), "outline", func(ctx context.Context) error {
		raw, err := t.backend.complete(ctx, outlineSystemPrompt, buildOutlineUserPrompt(opts))
		if err != nil {
			return err
		}
		o, err := ParseOutline(t.Name(), raw)
		if err != nil {
			return err
		}
		outline = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outline, nil
}

// GenerateChapter 生成单章 Markdown，空输出视为失败
func (t *textProvider) GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, error) {
	var markdown string
	err := t.policy.do(ctx, t.Name(), "chapter", func(ctx context.Context) error {
		raw, err := t.backend.complete(ctx, chapterSystemPrompt, buildChapterUserPrompt(opts, outline, chapter, index, total))
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return apperrors.EmptyResponse(t.Name())
		}
		markdown = raw
		return nil
	})
	if err != nil {
		return "", err
	}
	return markdown, nil
}

// GenerateCoverImage 生成封面，不支持图片的后端直接报错以便链路回退
func (t *textProvider) GenerateCoverImage(ctx context.Context, prompt, sizeTier string) (*entity.ImageData, error) {
	ig, ok := t.backend.(imageGenerator)
	if !ok {
		return nil, apperrors.ProviderError(t.Name(), errImageUnsupported)
	}

	var image *entity.ImageData
	err := t.policy.do(ctx, t.Name(), "cover_image", func(ctx context.Context) error {
		img, err := ig.generateImage(ctx, prompt, sizeTier)
		if err != nil {
			return err
		}
		if img == nil || len(img.Data) == 0 {
			return apperrors.EmptyResponse(t.Name())
		}
		img.Provider = t.Name()
		image = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// EditCoverImage 以改写后的提示词重新生成封面
func (t *textProvider) EditCoverImage(ctx context.Context, image *entity.ImageData, prompt string) (*entity.ImageData, error) {
	return t.GenerateCoverImage(ctx, buildEditPrompt(prompt), "medium")
}

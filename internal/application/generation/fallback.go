package generation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"bookforge/internal/domain/entity"
	"bookforge/pkg/errors"
	"bookforge/pkg/logger"
	"bookforge/pkg/metrics"
)

// Attempt 单个后端的失败记录
type Attempt struct {
	Provider string
	Err      error
}

// Fallback 按优先级依次尝试后端，首个成功立即返回
// 尝试严格串行，绝不并发竞速
type Fallback struct {
	providers []Provider
}

// NewFallback 创建回退链，providers 顺序即优先级
func NewFallback(providers []Provider) *Fallback {
	return &Fallback{providers: providers}
}

// Providers 链中的后端列表
func (f *Fallback) Providers() []Provider {
	return f.providers
}

// exhausted 汇总所有失败原因构造 AllProvidersFailed
func exhausted(operation string, attempts []Attempt) *errors.AppError {
	metrics.FallbackExhaustedTotal.WithLabelValues(operation).Inc()
	if len(attempts) == 0 {
		return errors.New(errors.CodeAllProvidersFailed, fmt.Sprintf("no provider available for %s", operation))
	}
	reasons := make([]string, 0, len(attempts))
	for _, a := range attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return errors.New(errors.CodeAllProvidersFailed, fmt.Sprintf("all providers failed for %s", operation)).
		WithDetail(strings.Join(reasons, "; "))
}

// run 对链中每个后端依次执行 call，记录失败并在耗尽后汇总
func (f *Fallback) run(ctx context.Context, operation string, call func(Provider) error) error {
	attempts := make([]Attempt, 0, len(f.providers))
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			if stderrors.Is(err, context.Canceled) {
				return errors.Canceled(operation, err)
			}
			return errors.Timeout(operation, err)
		}
		err := call(p)
		if err == nil {
			metrics.FallbackAttemptsTotal.WithLabelValues(p.Name(), operation, "success").Inc()
			return nil
		}
		metrics.FallbackAttemptsTotal.WithLabelValues(p.Name(), operation, "failure").Inc()
		logger.Warn(ctx, "provider attempt failed",
			"provider", p.Name(),
			"operation", operation,
			"error", err.Error(),
		)
		attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
	}
	return exhausted(operation, attempts)
}

// GenerateOutline 沿回退链生成大纲
func (f *Fallback) GenerateOutline(ctx context.Context, opts entity.GenerationOptions) (*entity.BookOutline, error) {
	var outline *entity.BookOutline
	err := f.run(ctx, "outline", func(p Provider) error {
		o, err := p.GenerateOutline(ctx, opts)
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

// GenerateChapter 沿回退链生成单章
func (f *Fallback) GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, string, error) {
	var markdown, provider string
	err := f.run(ctx, "chapter", func(p Provider) error {
		md, err := p.GenerateChapter(ctx, opts, outline, chapter, index, total)
		if err != nil {
			return err
		}
		markdown = md
		provider = p.Name()
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return markdown, provider, nil
}

// GenerateCoverImage 沿回退链生成封面
func (f *Fallback) GenerateCoverImage(ctx context.Context, prompt string, sizeTier string) (*entity.ImageData, error) {
	var image *entity.ImageData
	err := f.run(ctx, "cover_image", func(p Provider) error {
		img, err := p.GenerateCoverImage(ctx, prompt, sizeTier)
		if err != nil {
			return err
		}
		image = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// EditCoverImage 沿回退链编辑封面
func (f *Fallback) EditCoverImage(ctx context.Context, image *entity.ImageData, prompt string) (*entity.ImageData, error) {
	var out *entity.ImageData
	err := f.run(ctx, "cover_edit", func(p Provider) error {
		img, err := p.EditCoverImage(ctx, image, prompt)
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"bookforge/internal/application/generation"
	"bookforge/internal/config"
	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
	"bookforge/pkg/logger"
)

// missingProvider 无凭证后端的占位实现
// 每次调用都报 CredentialMissing，使回退链记录失败而非静默跳过
type missingProvider struct {
	name string
}

func (m *missingProvider) Name() string { return m.name }

func (m *missingProvider) GenerateOutline(ctx context.Context, opts entity.GenerationOptions) (*entity.BookOutline, error) {
	return nil, apperrors.CredentialMissing(m.name)
}

func (m *missingProvider) GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, error) {
	return "", apperrors.CredentialMissing(m.name)
}

func (m *missingProvider) GenerateCoverImage(ctx context.Context, prompt, sizeTier string) (*entity.ImageData, error) {
	return nil, apperrors.CredentialMissing(m.name)
}

func (m *missingProvider) EditCoverImage(ctx context.Context, image *entity.ImageData, prompt string) (*entity.ImageData, error) {
	return nil, apperrors.CredentialMissing(m.name)
}

// Registry 按配置构建后端适配器并组装回退链
type Registry struct {
	providers map[string]generation.Provider
}

// policyFromConfig 从生成配置构建调用策略
func policyFromConfig(cfg *config.GenerationConfig) callPolicy {
	return callPolicy{
		outlineTimeout: cfg.OutlineTimeout,
		chapterTimeout: cfg.ChapterTimeout,
		imageTimeout:   cfg.ImageTimeout,
		maxRetries:     cfg.MaxRetries,
		backoff:        cfg.RetryBackoff,
		sleep:          sleepWithContext,
	}
}

// needsCredential ollama 以外的后端都需要 API Key
func needsCredential(name string) bool {
	return backendKind(name) != "ollama"
}

// backendKind 按名称识别后端类型，未知名称按 OpenAI 兼容处理
func backendKind(name string) string {
	switch {
	case strings.HasPrefix(name, "gemini"), strings.HasPrefix(name, "google"):
		return "gemini"
	case strings.HasPrefix(name, "anthropic"), strings.HasPrefix(name, "claude"):
		return "anthropic"
	case strings.HasPrefix(name, "ollama"):
		return "ollama"
	default:
		return "openai"
	}
}

// NewRegistry 构建全部已配置后端
// 凭证缺失的后端注册为 missingProvider，其余构建失败返回错误
func NewRegistry(ctx context.Context, cfg *config.Config) (*Registry, error) {
	policy := policyFromConfig(&cfg.Generation)
	providers := make(map[string]generation.Provider, len(cfg.LLM.Providers))

	for name, providerCfg := range cfg.LLM.Providers {
		if needsCredential(name) && providerCfg.APIKey == "" {
			logger.Warn(ctx, "provider has no credential", "provider", name)
			providers[name] = &missingProvider{name: name}
			continue
		}

		var backend completer
		var err error
		switch backendKind(name) {
		case "gemini":
			backend, err = newGeminiChat(ctx, name, providerCfg)
		case "anthropic":
			backend = newAnthropicChat(name, providerCfg)
		case "ollama":
			backend, err = newOllamaChat(name, providerCfg)
		default:
			backend, err = newOpenAIChat(ctx, name, providerCfg)
		}
		if err != nil {
			return nil, err
		}
		providers[name] = newTextProvider(backend, policy)
	}

	return &Registry{providers: providers}, nil
}

// Get 按名称取后端
func (r *Registry) Get(name string) (generation.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	return p, nil
}

// Chain 按名称列表组装回退链，未知名称视为配置错误
func (r *Registry) Chain(names []string) (*generation.Fallback, error) {
	providers := make([]generation.Provider, 0, len(names))
	for _, name := range names {
		p, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return generation.NewFallback(providers), nil
}

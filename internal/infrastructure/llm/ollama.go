package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"bookforge/internal/config"
)

// ollamaChat 本地 Ollama 后端，无需 API Key
type ollamaChat struct {
	name    string
	client  *api.Client
	model   string
	options map[string]any
}

// newOllamaChat 创建 Ollama 后端
func newOllamaChat(name string, cfg config.ProviderConfig) (*ollamaChat, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	// api.NewClient 需要不带 /v1 后缀的根地址
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %s: %w", baseURL, err)
	}

	options := map[string]any{}
	if cfg.Temperature > 0 {
		options["temperature"] = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		options["num_predict"] = cfg.MaxTokens
	}

	return &ollamaChat{
		name:    name,
		client:  api.NewClient(parsed, http.DefaultClient),
		model:   cfg.Model,
		options: options,
	}, nil
}

func (c *ollamaChat) Name() string {
	return c.name
}

func (c *ollamaChat) complete(ctx context.Context, system, user string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  &stream,
		Options: c.options,
	}

	var b strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

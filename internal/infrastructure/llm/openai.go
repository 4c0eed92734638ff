package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaigo "github.com/sashabaranov/go-openai"

	"bookforge/internal/config"
	"bookforge/internal/domain/entity"
	obseino "bookforge/internal/observability/eino"
)

// openAIChat OpenAI 兼容后端，文本走 Eino，图片走 Images API
type openAIChat struct {
	name       string
	model      model.BaseChatModel
	images     *openaigo.Client
	imageModel string
}

// newOpenAIChat 创建 OpenAI 兼容后端
func newOpenAIChat(ctx context.Context, name string, cfg config.ProviderConfig) (*openAIChat, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: ptrFloat32(float32(cfg.Temperature)),
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	c := &openAIChat{name: name, model: chatModel}
	if cfg.ImageModel != "" {
		clientCfg := openaigo.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		c.images = openaigo.NewClientWithConfig(clientCfg)
		c.imageModel = cfg.ImageModel
	}
	return c, nil
}

func (c *openAIChat) Name() string {
	return c.name
}

func (c *openAIChat) complete(ctx context.Context, system, user string) (string, error) {
	ctx = obseino.WithProvider(ctx, c.name)
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	out, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// sizeForTier 尺寸档位转 Images API 尺寸
func sizeForTier(sizeTier string) string {
	switch sizeTier {
	case "small":
		return "512x512"
	case "large":
		return "1792x1024"
	default:
		return "1024x1024"
	}
}

func (c *openAIChat) generateImage(ctx context.Context, prompt, sizeTier string) (*entity.ImageData, error) {
	if c.images == nil {
		return nil, errImageUnsupported
	}
	resp, err := c.images.CreateImage(ctx, openaigo.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           sizeForTier(sizeTier),
		ResponseFormat: openaigo.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("images api returned no data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return &entity.ImageData{MIMEType: "image/png", Data: data}, nil
}

func ptrFloat32(f float32) *float32 {
	return &f
}

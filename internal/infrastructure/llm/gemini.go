package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"bookforge/internal/config"
	"bookforge/internal/domain/entity"
)

// geminiChat Google Gemini 后端，文本与图片共用一个客户端
type geminiChat struct {
	name       string
	client     *genai.Client
	model      string
	imageModel string
}

// newGeminiChat 创建 Gemini 后端
func newGeminiChat(ctx context.Context, name string, cfg config.ProviderConfig) (*geminiChat, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client for %s: %w", name, err)
	}
	return &geminiChat{
		name:       name,
		client:     client,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
	}, nil
}

func (c *geminiChat) Name() string {
	return c.name
}

func (c *geminiChat) complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	res, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (c *geminiChat) generateImage(ctx context.Context, prompt, sizeTier string) (*entity.ImageData, error) {
	if c.imageModel == "" {
		return nil, errImageUnsupported
	}
	res, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(res.GeneratedImages) == 0 || res.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("gemini returned no image")
	}
	img := res.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &entity.ImageData{MIMEType: mime, Data: img.ImageBytes}, nil
}

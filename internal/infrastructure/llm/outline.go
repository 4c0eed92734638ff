package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

// stripCodeFences 去掉模型输出外层的 Markdown 代码围栏
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseOutline 解析大纲 JSON，空章节列表视为失败
func ParseOutline(provider, raw string) (*entity.BookOutline, error) {
	text := stripCodeFences(raw)
	if text == "" {
		return nil, apperrors.EmptyResponse(provider)
	}

	var outline entity.BookOutline
	if err := json.Unmarshal([]byte(text), &outline); err != nil {
		return nil, apperrors.MalformedResponse(provider, err)
	}
	if outline.Title == "" {
		return nil, apperrors.MalformedResponse(provider, fmt.Errorf("outline has no title"))
	}
	if len(outline.Chapters) == 0 {
		return nil, apperrors.MalformedResponse(provider, fmt.Errorf("outline has no chapters"))
	}
	for i, ch := range outline.Chapters {
		if strings.TrimSpace(ch.Title) == "" {
			return nil, apperrors.MalformedResponse(provider, fmt.Errorf("chapter %d has no title", i+1))
		}
	}
	return &outline, nil
}

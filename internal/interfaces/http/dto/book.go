package dto

import (
	"bookforge/internal/domain/entity"
)

// CreateBookRequest 创建生成运行请求
type CreateBookRequest struct {
	Topic        string   `json:"topic" binding:"required"`
	Objective    string   `json:"objective"`
	Audience     string   `json:"audience"`
	Style        string   `json:"style"`
	Language     string   `json:"language"`
	ChapterCount int      `json:"chapter_count" binding:"required,min=1,max=50"`
	ChapterWords int      `json:"chapter_words"`
	Author       string   `json:"author"`
	Features     []string `json:"features"`
	ExtraNotes   string   `json:"extra_notes"`
}

// ToOptions 转换为领域生成参数
func (r *CreateBookRequest) ToOptions() entity.GenerationOptions {
	return entity.GenerationOptions{
		Topic:        r.Topic,
		Objective:    r.Objective,
		Audience:     r.Audience,
		Style:        r.Style,
		Language:     r.Language,
		ChapterCount: r.ChapterCount,
		ChapterWords: r.ChapterWords,
		Author:       r.Author,
		Features:     r.Features,
		ExtraNotes:   r.ExtraNotes,
	}
}

// RunResponse 运行状态响应
type RunResponse struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	Title         string `json:"title,omitempty"`
	ChaptersDone  int    `json:"chapters_done"`
	ChaptersTotal int    `json:"chapters_total"`
	LastError     string `json:"last_error,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// NewRunResponse 从运行快照构造响应
func NewRunResponse(s *entity.RunSnapshot) RunResponse {
	resp := RunResponse{
		ID:           s.ID,
		State:        string(s.State),
		ChaptersDone: len(s.Chapters),
		LastError:    s.LastError,
		CreatedAt:    s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if s.Outline != nil {
		resp.Title = s.Outline.Title
		resp.ChaptersTotal = len(s.Outline.Chapters)
	} else {
		resp.ChaptersTotal = s.Options.ChapterCount
	}
	return resp
}

// CoverRequest 封面生成请求
type CoverRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	SizeTier string `json:"size_tier"`
}

// CoverResponse 封面生成响应，图片以 base64 编码返回
type CoverResponse struct {
	Provider string `json:"provider"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

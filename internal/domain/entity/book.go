// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// GenerationOptions 书籍生成参数，由客户端提交
type GenerationOptions struct {
	Topic        string   `json:"topic"`
	Objective    string   `json:"objective,omitempty"`
	Audience     string   `json:"audience,omitempty"`
	Style        string   `json:"style,omitempty"`
	Language     string   `json:"language,omitempty"`
	ChapterCount int      `json:"chapter_count"`
	ChapterWords int      `json:"chapter_words,omitempty"`
	Author       string   `json:"author,omitempty"`
	Features     []string `json:"features,omitempty"`
	ExtraNotes   string   `json:"extra_notes,omitempty"`
}

// ChapterOutline 大纲中的单章条目
type ChapterOutline struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// BookOutline 书籍大纲，由 LLM 结构化输出解析得到
type BookOutline struct {
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle,omitempty"`
	Description   string           `json:"description,omitempty"`
	BackCoverCopy string           `json:"backCoverCopy,omitempty"`
	Chapters      []ChapterOutline `json:"chapters"`
}

// ChapterCount 大纲章节数
func (o *BookOutline) ChapterCount() int {
	if o == nil {
		return 0
	}
	return len(o.Chapters)
}

// ChapterContent 已生成的章节正文
type ChapterContent struct {
	Index       int       `json:"index"` // 从 0 开始
	Title       string    `json:"title"`
	Markdown    string    `json:"markdown"`
	Provider    string    `json:"provider,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// WordCount 按空白分词估算字数
func (c *ChapterContent) WordCount() int {
	return len(strings.Fields(c.Markdown))
}

// GeneratedBook 汇总后的完整书籍
type GeneratedBook struct {
	Outline  *BookOutline     `json:"outline"`
	Chapters []ChapterContent `json:"chapters"`
	Author   string           `json:"author,omitempty"`
	Language string           `json:"language,omitempty"`
}

// IsComplete 章节是否全部生成且序号连续
func (b *GeneratedBook) IsComplete() bool {
	if b == nil || b.Outline == nil {
		return false
	}
	if len(b.Chapters) != len(b.Outline.Chapters) {
		return false
	}
	for i, ch := range b.Chapters {
		if ch.Index != i {
			return false
		}
	}
	return true
}

// ImageData 归一化后的生成图片
type ImageData struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
	Provider string `json:"provider,omitempty"`
}

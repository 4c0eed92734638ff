package llm

import (
	"fmt"
	"strings"

	"bookforge/internal/domain/entity"
)

// outlineSystemPrompt 大纲阶段系统提示词，要求纯 JSON 输出
const outlineSystemPrompt = `You are a professional book architect. Design a complete book outline for the requested topic.
Respond with a single JSON object and nothing else, no Markdown fences, matching exactly:
{"title": "...", "subtitle": "...", "description": "...", "backCoverCopy": "...", "chapters": [{"title": "...", "description": "..."}]}
The chapters array must contain exactly the requested number of chapters, each with a concrete, specific title and a two sentence description.`

// chapterSystemPrompt 章节阶段系统提示词，要求 Markdown 正文
const chapterSystemPrompt = `You are a professional book author. Write one full chapter of the book described below.
Respond with the chapter body only, in Markdown. Use ## and ### headings for sections, regular paragraphs, and bullet lists where they help.
Format lists as hyphen-prefixed items and use **bold** or *italic* asterisks for emphasis, nothing else.
Do not repeat the chapter title as a heading, do not add front matter, and do not summarize other chapters.`

// buildOutlineUserPrompt 组装大纲请求
func buildOutlineUserPrompt(opts entity.GenerationOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", opts.Topic)
	fmt.Fprintf(&b, "Number of chapters: %d\n", opts.ChapterCount)
	if opts.Objective != "" {
		fmt.Fprintf(&b, "Objective of the book: %s\n", opts.Objective)
	}
	if opts.Audience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", opts.Audience)
	}
	if opts.Style != "" {
		fmt.Fprintf(&b, "Writing style: %s\n", opts.Style)
	}
	if opts.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", opts.Language)
	}
	if len(opts.Features) > 0 {
		fmt.Fprintf(&b, "Requested features: %s\n", strings.Join(opts.Features, ", "))
	}
	if opts.ExtraNotes != "" {
		fmt.Fprintf(&b, "Additional notes: %s\n", opts.ExtraNotes)
	}
	return b.String()
}

// buildChapterUserPrompt 组装单章请求，携带大纲上下文保证前后连贯
func buildChapterUserPrompt(opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book title: %s\n", outline.Title)
	if outline.Subtitle != "" {
		fmt.Fprintf(&b, "Subtitle: %s\n", outline.Subtitle)
	}
	if outline.Description != "" {
		fmt.Fprintf(&b, "Book description: %s\n", outline.Description)
	}
	if opts.Objective != "" {
		fmt.Fprintf(&b, "Objective of the book: %s\n", opts.Objective)
	}
	if opts.Audience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", opts.Audience)
	}
	if opts.Style != "" {
		fmt.Fprintf(&b, "Writing style: %s\n", opts.Style)
	}
	if opts.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", opts.Language)
	}
	if len(opts.Features) > 0 {
		fmt.Fprintf(&b, "Requested features: %s\n", strings.Join(opts.Features, ", "))
	}
	if opts.ChapterWords > 0 {
		fmt.Fprintf(&b, "Target length: about %d words\n", opts.ChapterWords)
	}

	b.WriteString("\nFull outline:\n")
	for i, ch := range outline.Chapters {
		fmt.Fprintf(&b, "%d. %s", i+1, ch.Title)
		if ch.Description != "" {
			fmt.Fprintf(&b, " - %s", ch.Description)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nWrite chapter %d of %d: %s\n", index+1, total, chapter.Title)
	if chapter.Description != "" {
		fmt.Fprintf(&b, "Chapter focus: %s\n", chapter.Description)
	}
	return b.String()
}

// buildEditPrompt 封面编辑改写为带原图意图的再生成提示词
func buildEditPrompt(prompt string) string {
	return fmt.Sprintf("Refine the existing book cover design. Keep the overall composition and apply this change: %s", prompt)
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookforge/internal/domain/entity"
)

func TestOutlinePromptCarriesAllOptions(t *testing.T) {
	opts := entity.GenerationOptions{
		Topic:        "distributed systems",
		Objective:    "prepare on-call engineers for incident response",
		Audience:     "site reliability engineers",
		Style:        "pragmatic",
		Language:     "en",
		ChapterCount: 4,
		Features:     []string{"case studies", "checklists"},
		ExtraNotes:   "avoid vendor specific tooling",
	}

	p := buildOutlineUserPrompt(opts)
	assert.Contains(t, p, "Topic: distributed systems")
	assert.Contains(t, p, "Number of chapters: 4")
	assert.Contains(t, p, "Objective of the book: prepare on-call engineers")
	assert.Contains(t, p, "Target audience: site reliability engineers")
	assert.Contains(t, p, "Requested features: case studies, checklists")
	assert.Contains(t, p, "Additional notes: avoid vendor specific tooling")
}

func TestOutlinePromptOmitsEmptyOptions(t *testing.T) {
	p := buildOutlineUserPrompt(entity.GenerationOptions{Topic: "go", ChapterCount: 2})
	assert.NotContains(t, p, "Objective")
	assert.NotContains(t, p, "Requested features")
	assert.NotContains(t, p, "Target audience")
}

func TestChapterSystemPromptNamesMarkdownConventions(t *testing.T) {
	assert.Contains(t, chapterSystemPrompt, "hyphen-prefixed items")
	assert.Contains(t, chapterSystemPrompt, "**bold** or *italic* asterisks")
	assert.Contains(t, chapterSystemPrompt, "## and ### headings")
}

func TestChapterPromptCarriesObjectiveAndFeatures(t *testing.T) {
	opts := entity.GenerationOptions{
		Topic:        "go",
		Objective:    "make testing approachable",
		Features:     []string{"exercises"},
		ChapterWords: 1500,
	}
	outline := &entity.BookOutline{
		Title: "Testing in Go",
		Chapters: []entity.ChapterOutline{
			{Title: "Unit Tests"},
			{Title: "Integration Tests", Description: "databases and fakes"},
			{Title: "Fuzzing"},
		},
	}

	p := buildChapterUserPrompt(opts, outline, outline.Chapters[1], 1, 3)
	assert.Contains(t, p, "Book title: Testing in Go")
	assert.Contains(t, p, "Objective of the book: make testing approachable")
	assert.Contains(t, p, "Requested features: exercises")
	assert.Contains(t, p, "Target length: about 1500 words")
	assert.Contains(t, p, "Write chapter 2 of 3: Integration Tests")
	assert.Contains(t, p, "Chapter focus: databases and fakes")
	// 全部大纲作为上下文带入
	assert.Contains(t, p, "1. Unit Tests")
	assert.Contains(t, p, "3. Fuzzing")
}

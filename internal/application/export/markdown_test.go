package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpansBoldAndItalic(t *testing.T) {
	spans := ParseSpans("plain **bold** and *italic* tail")
	require.Len(t, spans, 5)
	assert.Equal(t, Span{Text: "plain ", Style: SpanPlain}, spans[0])
	assert.Equal(t, Span{Text: "bold", Style: SpanBold}, spans[1])
	assert.Equal(t, Span{Text: " and ", Style: SpanPlain}, spans[2])
	assert.Equal(t, Span{Text: "italic", Style: SpanItalic}, spans[3])
	assert.Equal(t, Span{Text: " tail", Style: SpanPlain}, spans[4])
}

func TestParseSpansUnderscoreVariants(t *testing.T) {
	spans := ParseSpans("__strong__ _em_")
	require.Len(t, spans, 3)
	assert.Equal(t, SpanBold, spans[0].Style)
	assert.Equal(t, "strong", spans[0].Text)
	assert.Equal(t, SpanItalic, spans[2].Style)
	assert.Equal(t, "em", spans[2].Text)
}

func TestParseSpansNoMarkup(t *testing.T) {
	spans := ParseSpans("just a sentence")
	require.Len(t, spans, 1)
	assert.Equal(t, SpanPlain, spans[0].Style)
}

func TestParseBlocksStructure(t *testing.T) {
	md := "## Getting Started\n\nFirst line with **bold** text\ncontinues here.\n\n- item one\n- item two\n"

	blocks := ParseBlocks(md)
	require.Len(t, blocks, 3)

	assert.Equal(t, BlockHeading, blocks[0].Kind)
	assert.Equal(t, 2, blocks[0].Level)
	assert.Equal(t, "Getting Started", blocks[0].Spans[0].Text)

	assert.Equal(t, BlockParagraph, blocks[1].Kind)
	// 段内换行合并为空格
	var joined string
	hasBold := false
	for _, s := range blocks[1].Spans {
		joined += s.Text
		if s.Style == SpanBold {
			hasBold = true
		}
	}
	assert.Equal(t, "First line with bold text continues here.", joined)
	assert.True(t, hasBold)

	assert.Equal(t, BlockList, blocks[2].Kind)
	require.Len(t, blocks[2].Items, 2)
	assert.Equal(t, "item one", blocks[2].Items[0][0].Text)
	assert.Equal(t, "item two", blocks[2].Items[1][0].Text)
}

func TestParseBlocksHeadingLevels(t *testing.T) {
	blocks := ParseBlocks("# One\n## Two\n### Three\n\n#### Four\n\n#NoSpace")
	require.Len(t, blocks, 5)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, 2, blocks[1].Level)
	assert.Equal(t, 3, blocks[2].Level)
	// 超过三级或缺空格的按段落处理
	assert.Equal(t, BlockParagraph, blocks[3].Kind)
	assert.Equal(t, BlockParagraph, blocks[4].Kind)
}

func TestParseBlocksHeadingSplitsList(t *testing.T) {
	blocks := ParseBlocks("- a\n- b\n# Head\n- c")
	require.Len(t, blocks, 3)
	assert.Equal(t, BlockList, blocks[0].Kind)
	assert.Len(t, blocks[0].Items, 2)
	assert.Equal(t, BlockHeading, blocks[1].Kind)
	assert.Equal(t, BlockList, blocks[2].Kind)
	assert.Len(t, blocks[2].Items, 1)
}

func TestParseBlocksEmptyInput(t *testing.T) {
	assert.Empty(t, ParseBlocks(""))
	assert.Empty(t, ParseBlocks("\n\n\n"))
}

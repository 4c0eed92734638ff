// Package export 实现书籍文档导出：Markdown 解析、DOCX 与 EPUB 打包
package export

import (
	"regexp"
	"strings"
)

// BlockKind 块类型
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
)

// SpanStyle 行内样式
type SpanStyle int

const (
	SpanPlain SpanStyle = iota
	SpanBold
	SpanItalic
)

// Span 行内片段
type Span struct {
	Text  string
	Style SpanStyle
}

// Block 解析后的 Markdown 块
type Block struct {
	Kind  BlockKind
	Level int      // 仅标题，1-3
	Spans []Span   // 标题与段落
	Items [][]Span // 仅列表
}

// inlineRe 行内强调匹配，双分隔符（粗体）先于单分隔符（斜体）
var inlineRe = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__|\*(.+?)\*|_(.+?)_`)

// ParseSpans 把一行文本切分为带样式的片段
func ParseSpans(text string) []Span {
	spans := []Span{}
	last := 0
	for _, m := range inlineRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			spans = append(spans, Span{Text: text[last:m[0]], Style: SpanPlain})
		}
		// 组 1/2 为粗体，组 3/4 为斜体
		switch {
		case m[2] >= 0:
			spans = append(spans, Span{Text: text[m[2]:m[3]], Style: SpanBold})
		case m[4] >= 0:
			spans = append(spans, Span{Text: text[m[4]:m[5]], Style: SpanBold})
		case m[6] >= 0:
			spans = append(spans, Span{Text: text[m[6]:m[7]], Style: SpanItalic})
		case m[8] >= 0:
			spans = append(spans, Span{Text: text[m[8]:m[9]], Style: SpanItalic})
		}
		last = m[1]
	}
	if last < len(text) {
		spans = append(spans, Span{Text: text[last:], Style: SpanPlain})
	}
	return spans
}

// headingLevel 行首 # 数量，超过 3 或无空格分隔返回 0
func headingLevel(line string) (int, string) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 3 {
		return 0, ""
	}
	rest := line[level:]
	if !strings.HasPrefix(rest, " ") {
		return 0, ""
	}
	return level, strings.TrimSpace(rest)
}

// listItem 列表项内容，非列表项返回 false
func listItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

// ParseBlocks 按行解析 Markdown 为块序列
// 支持 1-3 级标题、列表项与段落，连续列表项合并为一个列表块
func ParseBlocks(markdown string) []Block {
	blocks := []Block{}
	var paragraph []string
	var list [][]Span

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		text := strings.Join(paragraph, " ")
		blocks = append(blocks, Block{Kind: BlockParagraph, Spans: ParseSpans(text)})
		paragraph = nil
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		blocks = append(blocks, Block{Kind: BlockList, Items: list})
		list = nil
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flushParagraph()
			flushList()
			continue
		}
		if level, text := headingLevel(line); level > 0 {
			flushParagraph()
			flushList()
			blocks = append(blocks, Block{Kind: BlockHeading, Level: level, Spans: ParseSpans(text)})
			continue
		}
		if item, ok := listItem(line); ok {
			flushParagraph()
			list = append(list, ParseSpans(item))
			continue
		}
		flushList()
		paragraph = append(paragraph, line)
	}
	flushParagraph()
	flushList()
	return blocks
}

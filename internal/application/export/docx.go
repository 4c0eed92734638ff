package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

// docxStyles 文档样式表：标题、副标题、三级章节标题与正文
const docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:styleId="Normal" w:default="1"><w:name w:val="Normal"/><w:rPr><w:sz w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:pPr><w:jc w:val="center"/><w:spacing w:before="2400" w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="56"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Subtitle"><w:name w:val="Subtitle"/><w:basedOn w:val="Normal"/><w:pPr><w:jc w:val="center"/><w:spacing w:after="240"/></w:pPr><w:rPr><w:i/><w:sz w:val="32"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:before="480" w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:before="360" w:after="180"/></w:pPr><w:rPr><w:b/><w:sz w:val="30"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:before="240" w:after="120"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="720"/></w:pPr></w:style>
</w:styles>`

// xmlEscape 转义 XML 文本内容
func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// writeRuns 输出带样式的 w:r 序列
func writeRuns(b *strings.Builder, spans []Span) {
	for _, span := range spans {
		b.WriteString("<w:r>")
		switch span.Style {
		case SpanBold:
			b.WriteString("<w:rPr><w:b/></w:rPr>")
		case SpanItalic:
			b.WriteString("<w:rPr><w:i/></w:rPr>")
		}
		fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, xmlEscape(span.Text))
		b.WriteString("</w:r>")
	}
}

// writeStyledParagraph 输出指定样式的段落
func writeStyledParagraph(b *strings.Builder, style string, spans []Span) {
	b.WriteString("<w:p>")
	if style != "" {
		fmt.Fprintf(b, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	}
	writeRuns(b, spans)
	b.WriteString("</w:p>")
}

// writeTextParagraph 纯文本段落
func writeTextParagraph(b *strings.Builder, style, text string) {
	writeStyledParagraph(b, style, []Span{{Text: text, Style: SpanPlain}})
}

// writePageBreak 分页符
func writePageBreak(b *strings.Builder) {
	b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

// writeBlock 输出一个解析后的 Markdown 块
func writeBlock(b *strings.Builder, block Block) {
	switch block.Kind {
	case BlockHeading:
		writeStyledParagraph(b, fmt.Sprintf("Heading%d", block.Level), block.Spans)
	case BlockList:
		for _, item := range block.Items {
			b.WriteString(`<w:p><w:pPr><w:pStyle w:val="ListParagraph"/></w:pPr>`)
			b.WriteString(`<w:r><w:t xml:space="preserve">• </w:t></w:r>`)
			writeRuns(b, item)
			b.WriteString("</w:p>")
		}
	default:
		writeStyledParagraph(b, "", block.Spans)
	}
}

// buildDocumentXML 组装 word/document.xml
// 块顺序：书名页、版权页、目录页、逐章正文
func buildDocumentXML(book *entity.GeneratedBook, publisher string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	outline := book.Outline
	writeTextParagraph(&b, "Title", outline.Title)
	if outline.Subtitle != "" {
		writeTextParagraph(&b, "Subtitle", outline.Subtitle)
	}
	if book.Author != "" {
		writeTextParagraph(&b, "Subtitle", "by "+book.Author)
	}
	writePageBreak(&b)

	writeTextParagraph(&b, "", fmt.Sprintf("Copyright © %s. All rights reserved.", publisher))
	writeTextParagraph(&b, "", "This book was generated with the assistance of artificial intelligence. The publisher makes no warranty as to the accuracy or completeness of its contents.")
	writePageBreak(&b)

	writeTextParagraph(&b, "Heading1", "Table of Contents")
	for i, ch := range book.Chapters {
		writeTextParagraph(&b, "", fmt.Sprintf("Chapter %d: %s", i+1, ch.Title))
	}
	writePageBreak(&b)

	for i, ch := range book.Chapters {
		writeTextParagraph(&b, "Subtitle", fmt.Sprintf("Chapter %d", i+1))
		writeTextParagraph(&b, "Heading1", ch.Title)
		for _, block := range ParseBlocks(ch.Markdown) {
			writeBlock(&b, block)
		}
		if i < len(book.Chapters)-1 {
			writePageBreak(&b)
		}
	}

	b.WriteString("</w:body></w:document>")
	return b.String()
}

// WriteDOCX 把完整书籍打包为 DOCX 字节流，全部在内存中完成
func WriteDOCX(book *entity.GeneratedBook, publisher string) ([]byte, error) {
	if err := validateBook(book); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/styles.xml", docxStyles},
		{"word/document.xml", buildDocumentXML(book, publisher)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, apperrors.ConversionError("docx", err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, apperrors.ConversionError("docx", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, apperrors.ConversionError("docx", err)
	}
	return buf.Bytes(), nil
}

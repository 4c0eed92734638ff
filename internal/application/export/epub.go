package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

const epubContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const epubStylesheet = `body { font-family: serif; line-height: 1.6; margin: 1em; }
h1, h2, h3 { font-family: sans-serif; line-height: 1.25; }
h1 { font-size: 1.6em; }
h2 { font-size: 1.3em; }
h3 { font-size: 1.1em; }
p { margin: 0 0 0.8em 0; text-align: justify; }
ul { margin: 0 0 0.8em 1.2em; }
.title-page { text-align: center; margin-top: 30%; }
.title-page .author { font-style: italic; margin-top: 2em; }
.chapter-number { text-transform: uppercase; letter-spacing: 0.2em; color: #666; }
nav ol { list-style: none; }`

// epubMarkdown goldmark 实例，GFM 扩展加 XHTML 输出，EPUB 要求 XHTML
var epubMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// xhtmlPage 包装 XHTML 页面，样式表相对本页所在目录引用
func xhtmlPage(title, cssHref, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title>%s</title>
<link rel="stylesheet" type="text/css" href="%s"/>
</head>
<body>
%s
</body>
</html>`, xmlEscape(title), cssHref, body)
}

// buildTitlePage 书名页
func buildTitlePage(book *entity.GeneratedBook) string {
	var b strings.Builder
	b.WriteString(`<div class="title-page">`)
	fmt.Fprintf(&b, "<h1>%s</h1>", xmlEscape(book.Outline.Title))
	if book.Outline.Subtitle != "" {
		fmt.Fprintf(&b, "<h2>%s</h2>", xmlEscape(book.Outline.Subtitle))
	}
	if book.Author != "" {
		fmt.Fprintf(&b, `<p class="author">%s</p>`, xmlEscape(book.Author))
	}
	b.WriteString("</div>")
	return xhtmlPage(book.Outline.Title, "../styles/book.css", b.String())
}

// buildTOCPage 目录页
func buildTOCPage(book *entity.GeneratedBook) string {
	var b strings.Builder
	b.WriteString("<h1>Table of Contents</h1><nav><ol>")
	for i, ch := range book.Chapters {
		fmt.Fprintf(&b, `<li><a href="chapter-%03d.xhtml">Chapter %d: %s</a></li>`, i+1, i+1, xmlEscape(ch.Title))
	}
	b.WriteString("</ol></nav>")
	return xhtmlPage("Table of Contents", "../styles/book.css", b.String())
}

// buildChapterPage 单章页面，正文经 goldmark 渲染为 XHTML
func buildChapterPage(ch entity.ChapterContent) (string, error) {
	var body bytes.Buffer
	if err := epubMarkdown.Convert([]byte(ch.Markdown), &body); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<p class="chapter-number">Chapter %d</p>`, ch.Index+1)
	fmt.Fprintf(&b, "<h1>%s</h1>", xmlEscape(ch.Title))
	b.Write(body.Bytes())
	return xhtmlPage(ch.Title, "../styles/book.css", b.String()), nil
}

// buildContentOPF 包描述文件，spine 顺序与 manifest 内容页顺序一致
func buildContentOPF(book *entity.GeneratedBook, bookID, language string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="book-id" version="3.0">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&b, "<dc:identifier id=\"book-id\">urn:uuid:%s</dc:identifier>\n", bookID)
	fmt.Fprintf(&b, "<dc:title>%s</dc:title>\n", xmlEscape(book.Outline.Title))
	fmt.Fprintf(&b, "<dc:language>%s</dc:language>\n", xmlEscape(language))
	if book.Author != "" {
		fmt.Fprintf(&b, "<dc:creator>%s</dc:creator>\n", xmlEscape(book.Author))
	}
	b.WriteString("</metadata>\n<manifest>\n")

	b.WriteString(`<item id="title" href="text/title.xhtml" media-type="application/xhtml+xml"/>` + "\n")
	b.WriteString(`<item id="toc" href="text/toc.xhtml" media-type="application/xhtml+xml"/>` + "\n")
	for i := range book.Chapters {
		fmt.Fprintf(&b, `<item id="chapter-%03d" href="text/chapter-%03d.xhtml" media-type="application/xhtml+xml"/>`+"\n", i+1, i+1)
	}
	b.WriteString(`<item id="css" href="styles/book.css" media-type="text/css"/>` + "\n")
	b.WriteString(`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
	b.WriteString("</manifest>\n<spine toc=\"ncx\">\n")

	b.WriteString(`<itemref idref="title"/>` + "\n")
	b.WriteString(`<itemref idref="toc"/>` + "\n")
	for i := range book.Chapters {
		fmt.Fprintf(&b, `<itemref idref="chapter-%03d"/>`+"\n", i+1)
	}
	b.WriteString("</spine>\n</package>")
	return b.String()
}

// buildTOCNCX 导航文件，playOrder 从 1 递增
func buildTOCNCX(book *entity.GeneratedBook, bookID string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
<head>
`)
	fmt.Fprintf(&b, `<meta name="dtb:uid" content="urn:uuid:%s"/>`+"\n", bookID)
	b.WriteString("</head>\n")
	fmt.Fprintf(&b, "<docTitle><text>%s</text></docTitle>\n<navMap>\n", xmlEscape(book.Outline.Title))

	order := 1
	writePoint := func(id, label, src string) {
		fmt.Fprintf(&b, `<navPoint id="%s" playOrder="%d"><navLabel><text>%s</text></navLabel><content src="%s"/></navPoint>`+"\n",
			id, order, xmlEscape(label), src)
		order++
	}
	writePoint("title", "Title Page", "text/title.xhtml")
	writePoint("toc", "Table of Contents", "text/toc.xhtml")
	for i, ch := range book.Chapters {
		writePoint(fmt.Sprintf("chapter-%03d", i+1), ch.Title, fmt.Sprintf("text/chapter-%03d.xhtml", i+1))
	}
	b.WriteString("</navMap>\n</ncx>")
	return b.String()
}

// WriteEPUB 把完整书籍打包为 EPUB 字节流
// mimetype 必须是压缩包首个条目且不压缩
func WriteEPUB(book *entity.GeneratedBook, language string) ([]byte, error) {
	if err := validateBook(book); err != nil {
		return nil, err
	}
	if language == "" {
		language = "en"
	}
	if book.Language != "" {
		language = book.Language
	}
	bookID := uuid.NewString()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mimetype, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, apperrors.ConversionError("epub", err)
	}
	if _, err := mimetype.Write([]byte("application/epub+zip")); err != nil {
		return nil, apperrors.ConversionError("epub", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", epubContainerXML},
		{"OEBPS/content.opf", buildContentOPF(book, bookID, language)},
		{"OEBPS/toc.ncx", buildTOCNCX(book, bookID)},
		{"OEBPS/styles/book.css", epubStylesheet},
		{"OEBPS/text/title.xhtml", buildTitlePage(book)},
		{"OEBPS/text/toc.xhtml", buildTOCPage(book)},
	}
	for _, ch := range book.Chapters {
		page, err := buildChapterPage(ch)
		if err != nil {
			return nil, apperrors.ConversionError("epub", err)
		}
		files = append(files, struct {
			name    string
			content string
		}{fmt.Sprintf("OEBPS/text/chapter-%03d.xhtml", ch.Index+1), page})
	}

	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, apperrors.ConversionError("epub", err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			return nil, apperrors.ConversionError("epub", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, apperrors.ConversionError("epub", err)
	}
	return buf.Bytes(), nil
}

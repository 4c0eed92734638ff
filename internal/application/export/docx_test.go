package export

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

func completeBook(chapters int) *entity.GeneratedBook {
	book := &entity.GeneratedBook{
		Outline: &entity.BookOutline{
			Title:    "Practical Distributed Systems",
			Subtitle: "A Field Guide",
		},
		Author: "A. Writer",
	}
	for i := 0; i < chapters; i++ {
		title := []string{"Foundations", "Consensus", "Operations"}[i%3]
		book.Outline.Chapters = append(book.Outline.Chapters, entity.ChapterOutline{Title: title})
		book.Chapters = append(book.Chapters, entity.ChapterContent{
			Index:       i,
			Title:       title,
			Markdown:    "## Overview\n\nSome **important** text.\n\n- first point\n- second point",
			GeneratedAt: time.Now(),
		})
	}
	return book
}

func readZipParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		parts[f.Name] = buf.String()
	}
	return parts
}

func TestWriteDOCXPackageLayout(t *testing.T) {
	data, err := WriteDOCX(completeBook(3), "bookforge")
	require.NoError(t, err)

	parts := readZipParts(t, data)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/_rels/document.xml.rels",
		"word/styles.xml",
		"word/document.xml",
	} {
		assert.Contains(t, parts, name)
	}
}

func TestWriteDOCXDocumentOrder(t *testing.T) {
	data, err := WriteDOCX(completeBook(2), "bookforge")
	require.NoError(t, err)

	doc := readZipParts(t, data)["word/document.xml"]
	title := strings.Index(doc, "Practical Distributed Systems")
	copyright := strings.Index(doc, "Copyright ©")
	toc := strings.Index(doc, "Table of Contents")
	chapterOne := strings.Index(doc, "Chapter 1")

	require.Greater(t, title, -1)
	require.Greater(t, copyright, -1)
	require.Greater(t, toc, -1)
	require.Greater(t, chapterOne, -1)
	assert.Less(t, title, copyright)
	assert.Less(t, copyright, toc)
	assert.Less(t, toc, chapterOne)

	// 正文块落入对应样式
	assert.Contains(t, doc, `<w:pStyle w:val="Heading2"/>`)
	assert.Contains(t, doc, "<w:rPr><w:b/></w:rPr>")
	assert.Contains(t, doc, `<w:pStyle w:val="ListParagraph"/>`)
}

func TestWriteDOCXEscapesXML(t *testing.T) {
	book := completeBook(1)
	book.Outline.Title = `Ops & "Chaos" <Engineering>`
	book.Chapters[0].Markdown = "a < b && c > d"

	data, err := WriteDOCX(book, "bookforge")
	require.NoError(t, err)

	doc := readZipParts(t, data)["word/document.xml"]
	assert.Contains(t, doc, "Ops &amp; &quot;Chaos&quot; &lt;Engineering&gt;")
	assert.Contains(t, doc, "a &lt; b &amp;&amp; c &gt; d")
	assert.NotContains(t, doc, `"Chaos"`)
}

func TestWriteDOCXRejectsIncompleteBook(t *testing.T) {
	book := completeBook(3)
	book.Chapters = book.Chapters[:2]

	_, err := WriteDOCX(book, "bookforge")
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeConversionError, appErr.Code)
	assert.Contains(t, appErr.Detail, "2 of 3 chapters")
}

func TestWriteDOCXRejectsNilBook(t *testing.T) {
	_, err := WriteDOCX(nil, "bookforge")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConversionError, apperrors.CodeOf(err))
}

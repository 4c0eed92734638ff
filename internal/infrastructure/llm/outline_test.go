package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bookforge/pkg/errors"
)

func TestParseOutlineStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"title\":\"Deep Work in Go\",\"chapters\":[{\"title\":\"Basics\",\"description\":\"start\"}]}\n```"

	outline, err := ParseOutline("openai", raw)
	require.NoError(t, err)
	assert.Equal(t, "Deep Work in Go", outline.Title)
	require.Len(t, outline.Chapters, 1)
	assert.Equal(t, "Basics", outline.Chapters[0].Title)
}

func TestParseOutlinePlainJSON(t *testing.T) {
	raw := `{"title":"T","subtitle":"S","backCoverCopy":"B","chapters":[{"title":"C1"},{"title":"C2"}]}`

	outline, err := ParseOutline("openai", raw)
	require.NoError(t, err)
	assert.Equal(t, "S", outline.Subtitle)
	assert.Equal(t, "B", outline.BackCoverCopy)
	assert.Len(t, outline.Chapters, 2)
}

func TestParseOutlineEmptyChaptersFails(t *testing.T) {
	_, err := ParseOutline("openai", `{"title":"T","chapters":[]}`)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedResponse, apperrors.CodeOf(err))
}

func TestParseOutlineGarbageFails(t *testing.T) {
	_, err := ParseOutline("openai", "Sure! Here is your outline:")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedResponse, apperrors.CodeOf(err))
}

func TestParseOutlineEmptyTextFails(t *testing.T) {
	_, err := ParseOutline("openai", "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeEmptyResponse, apperrors.CodeOf(err))
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripCodeFences(in))
	}
}

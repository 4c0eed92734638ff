package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutline(n int) *BookOutline {
	o := &BookOutline{Title: "T"}
	for i := 0; i < n; i++ {
		o.Chapters = append(o.Chapters, ChapterOutline{Title: "C"})
	}
	return o
}

func TestRunHappyPath(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{Topic: "go", ChapterCount: 2})
	assert.Equal(t, RunStateIdle, run.CurrentState())

	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(2)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 0, Title: "C", Markdown: "a"}))
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 1, Title: "C", Markdown: "b"}))
	require.NoError(t, run.Complete())
	assert.Equal(t, RunStateComplete, run.CurrentState())
}

func TestRunAppendChapterOutOfOrder(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{ChapterCount: 3})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(3)))
	require.NoError(t, run.BeginChapters())

	err := run.AppendChapter(ChapterContent{Index: 1, Title: "C"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")
	assert.Equal(t, 0, run.NextChapterIndex())
}

func TestRunInvalidTransitions(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{})
	assert.Error(t, run.AttachOutline(sampleOutline(1)), "no outline requested yet")
	assert.Error(t, run.BeginChapters(), "no outline attached")
	assert.Error(t, run.AppendChapter(ChapterContent{Index: 0}))
	assert.Error(t, run.Complete())

	require.NoError(t, run.BeginOutline())
	assert.Error(t, run.BeginOutline(), "already pending")
}

func TestRunCompleteRequiresAllChapters(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{ChapterCount: 2})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(2)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 0, Title: "C"}))

	assert.Error(t, run.Complete())
}

func TestRunFailKeepsChapters(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{ChapterCount: 2})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(2)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 0, Title: "C", Markdown: "a"}))

	run.Fail("provider down")
	assert.Equal(t, RunStateErrored, run.CurrentState())
	assert.Equal(t, 1, run.NextChapterIndex())

	// errored 可以重新进入章节生成并从断点继续
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 1, Title: "C", Markdown: "b"}))
	require.NoError(t, run.Complete())
}

func TestRunFailIgnoredWhenNotInFlight(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{})
	run.Fail("boom")
	assert.Equal(t, RunStateIdle, run.CurrentState())
	assert.Empty(t, run.Snapshot().LastError)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{ChapterCount: 1})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(1)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 0, Title: "C", Markdown: "a"}))

	snap := run.Snapshot()
	snap.Chapters[0].Markdown = "mutated"
	snap.Outline.Chapters[0].Title = "mutated"

	fresh := run.Snapshot()
	assert.Equal(t, "a", fresh.Chapters[0].Markdown)
	assert.Equal(t, "C", fresh.Outline.Chapters[0].Title)
}

func TestRestoreRunDegradesInFlightState(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{ChapterCount: 2})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(2)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 0, Title: "C", Markdown: "a"}))

	restored := RestoreRun(run.Snapshot())
	assert.Equal(t, RunStateErrored, restored.CurrentState())
	assert.Equal(t, "interrupted by process restart", restored.Snapshot().LastError)
	assert.Equal(t, 1, restored.NextChapterIndex())
}

func TestRestoreRunKeepsTerminalState(t *testing.T) {
	run := NewGenerationRun("r1", GenerationOptions{ChapterCount: 1})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(sampleOutline(1)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(ChapterContent{Index: 0, Title: "C", Markdown: "a"}))
	require.NoError(t, run.Complete())

	restored := RestoreRun(run.Snapshot())
	assert.Equal(t, RunStateComplete, restored.CurrentState())
}

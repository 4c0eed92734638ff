package generation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

// memorySnapshotStore 内存快照存储，记录每次写入的章节数用于断言写入时序
type memorySnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*entity.RunSnapshot
	saveLog   []int
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snapshots: make(map[string]*entity.RunSnapshot)}
}

func (s *memorySnapshotStore) Save(ctx context.Context, snapshot *entity.RunSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = snapshot
	s.saveLog = append(s.saveLog, len(snapshot.Chapters))
	return nil
}

func (s *memorySnapshotStore) Get(ctx context.Context, runID string) (*entity.RunSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[runID], nil
}

func (s *memorySnapshotStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, runID)
	return nil
}

func (s *memorySnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

// countingProvider 第 failAt 章失败一次后恢复
type countingProvider struct {
	fakeProvider
	mu           sync.Mutex
	generated    []int
	failAt       int
	failedOnce   bool
	outlineTotal int
}

func (p *countingProvider) GenerateOutline(ctx context.Context, opts entity.GenerationOptions) (*entity.BookOutline, error) {
	return testOutline(p.outlineTotal), nil
}

func (p *countingProvider) GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index == p.failAt && !p.failedOnce {
		p.failedOnce = true
		return "", errors.New("provider crashed")
	}
	p.generated = append(p.generated, index)
	return "chapter body", nil
}

func TestSequencerGeneratesAllChapters(t *testing.T) {
	provider := &countingProvider{failAt: -1, outlineTotal: 3}
	store := newMemorySnapshotStore()
	seq := NewSequencer(NewFallback([]Provider{provider}), store, nil, nil, 0)

	run := entity.NewGenerationRun("run-1", entity.GenerationOptions{Topic: "go", ChapterCount: 3})
	require.NoError(t, seq.Run(context.Background(), run))

	assert.Equal(t, entity.RunStateComplete, run.CurrentState())
	assert.Equal(t, []int{0, 1, 2}, provider.generated)
}

func TestSequencerSnapshotAfterEachChapter(t *testing.T) {
	provider := &countingProvider{failAt: -1, outlineTotal: 3}
	store := newMemorySnapshotStore()
	seq := NewSequencer(NewFallback([]Provider{provider}), store, nil, nil, 0)

	run := entity.NewGenerationRun("run-1", entity.GenerationOptions{Topic: "go", ChapterCount: 3})
	require.NoError(t, seq.Run(context.Background(), run))

	// 每章成功后必须有一次含该章的快照写入，序列单调不减
	assert.Contains(t, store.saveLog, 1)
	assert.Contains(t, store.saveLog, 2)
	assert.Contains(t, store.saveLog, 3)
	for i := 1; i < len(store.saveLog); i++ {
		assert.GreaterOrEqual(t, store.saveLog[i], store.saveLog[i-1])
	}
}

func TestSequencerResumeSkipsPersistedChapters(t *testing.T) {
	provider := &countingProvider{failAt: 2, outlineTotal: 5}
	store := newMemorySnapshotStore()
	seq := NewSequencer(NewFallback([]Provider{provider}), store, nil, nil, 0)

	run := entity.NewGenerationRun("run-1", entity.GenerationOptions{Topic: "go", ChapterCount: 5})
	err := seq.Run(context.Background(), run)
	require.Error(t, err)
	assert.Equal(t, entity.RunStateErrored, run.CurrentState())
	assert.Equal(t, 2, run.NextChapterIndex(), "chapters before the failure stay persisted")

	// 恢复后只生成剩余章节
	require.NoError(t, seq.Run(context.Background(), run))
	assert.Equal(t, entity.RunStateComplete, run.CurrentState())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, provider.generated, "no chapter is generated twice")
}

func TestSequencerOutlineFailureFailsRun(t *testing.T) {
	provider := &fakeProvider{name: "p", outlineErr: errors.New("model offline")}
	store := newMemorySnapshotStore()
	seq := NewSequencer(NewFallback([]Provider{provider}), store, nil, nil, 0)

	run := entity.NewGenerationRun("run-1", entity.GenerationOptions{Topic: "go", ChapterCount: 3})
	err := seq.Run(context.Background(), run)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAllProvidersFailed, apperrors.CodeOf(err))
	assert.Equal(t, entity.RunStateErrored, run.CurrentState())
	assert.Equal(t, 0, run.NextChapterIndex())
}

func TestRestartDiscardsEverything(t *testing.T) {
	run := entity.NewGenerationRun("run-1", entity.GenerationOptions{Topic: "go", ChapterCount: 2})
	require.NoError(t, run.BeginOutline())
	require.NoError(t, run.AttachOutline(testOutline(2)))
	require.NoError(t, run.BeginChapters())
	require.NoError(t, run.AppendChapter(entity.ChapterContent{Index: 0, Title: "Chapter 1", Markdown: "x"}))

	run.Restart()

	snap := run.Snapshot()
	assert.Equal(t, entity.RunStateIdle, snap.State)
	assert.Nil(t, snap.Outline)
	assert.Empty(t, snap.Chapters)
}

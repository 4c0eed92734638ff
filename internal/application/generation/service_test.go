package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

// gatedChapterProvider 章节调用可先失败 N 次，随后阻塞直到 release 关闭
type gatedChapterProvider struct {
	fakeProvider
	mu       sync.Mutex
	failures int
	entered  chan struct{}
	release  chan struct{}
}

func newGatedChapterProvider(chapters, failures int) *gatedChapterProvider {
	return &gatedChapterProvider{
		fakeProvider: fakeProvider{name: "gated", outline: testOutline(chapters)},
		failures:     failures,
		entered:      make(chan struct{}, 16),
		release:      make(chan struct{}),
	}
}

func (p *gatedChapterProvider) GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, error) {
	p.mu.Lock()
	if p.failures > 0 {
		p.failures--
		p.mu.Unlock()
		return "", errors.New("provider crashed")
	}
	p.mu.Unlock()

	select {
	case p.entered <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return "chapter body", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newGatedService(provider *gatedChapterProvider) (*RunService, *memorySnapshotStore) {
	store := newMemorySnapshotStore()
	seq := NewSequencer(NewFallback([]Provider{provider}), store, nil, nil, 0)
	return NewRunService(seq, store, nil), store
}

func TestRestartWhileChapterInFlight(t *testing.T) {
	provider := newGatedChapterProvider(2, 0)
	svc, _ := newGatedService(provider)

	run, err := svc.Start(context.Background(), entity.GenerationOptions{Topic: "go", ChapterCount: 2})
	require.NoError(t, err)

	// 第 0 章调用进行中时重启
	<-provider.entered
	restarted, err := svc.Restart(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Same(t, run, restarted)

	// 旧 goroutine 已退出，其失败路径不得污染重启后的运行
	close(provider.release)
	require.Eventually(t, func() bool {
		return run.CurrentState() == entity.RunStateComplete
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, run.NextChapterIndex())
	assert.Empty(t, run.Snapshot().LastError)
}

func TestResumeWhileActiveConflicts(t *testing.T) {
	provider := newGatedChapterProvider(1, 1)
	svc, _ := newGatedService(provider)

	run, err := svc.Start(context.Background(), entity.GenerationOptions{Topic: "go", ChapterCount: 1})
	require.NoError(t, err)

	// 第一次章节调用失败，等待运行落入 errored 且旧 goroutine 退出
	require.Eventually(t, func() bool {
		_, err := svc.Resume(context.Background(), run.ID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	// 恢复的 goroutine 阻塞在章节调用中，重复 resume 必须冲突
	<-provider.entered
	_, err = svc.Resume(context.Background(), run.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	close(provider.release)
	require.Eventually(t, func() bool {
		return run.CurrentState() == entity.RunStateComplete
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, run.NextChapterIndex())
}

func TestResumeRequiresErroredState(t *testing.T) {
	provider := &countingProvider{failAt: -1, outlineTotal: 1}
	store := newMemorySnapshotStore()
	seq := NewSequencer(NewFallback([]Provider{provider}), store, nil, nil, 0)
	svc := NewRunService(seq, store, nil)

	run, err := svc.Start(context.Background(), entity.GenerationOptions{Topic: "go", ChapterCount: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return run.CurrentState() == entity.RunStateComplete
	}, 2*time.Second, 10*time.Millisecond)

	_, err = svc.Resume(context.Background(), run.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestStartValidatesOptions(t *testing.T) {
	provider := newGatedChapterProvider(1, 0)
	svc, _ := newGatedService(provider)

	_, err := svc.Start(context.Background(), entity.GenerationOptions{ChapterCount: 1})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.CodeOf(err))

	_, err = svc.Start(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.CodeOf(err))
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
)

// fakeProvider 可编程的测试后端
type fakeProvider struct {
	name        string
	outlineErr  error
	chapterErr  error
	imageErr    error
	outline     *entity.BookOutline
	calls       int
	chapterText string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GenerateOutline(ctx context.Context, opts entity.GenerationOptions) (*entity.BookOutline, error) {
	f.calls++
	if f.outlineErr != nil {
		return nil, f.outlineErr
	}
	if f.outline != nil {
		return f.outline, nil
	}
	return testOutline(3), nil
}

func (f *fakeProvider) GenerateChapter(ctx context.Context, opts entity.GenerationOptions, outline *entity.BookOutline, chapter entity.ChapterOutline, index, total int) (string, error) {
	f.calls++
	if f.chapterErr != nil {
		return "", f.chapterErr
	}
	if f.chapterText != "" {
		return f.chapterText, nil
	}
	return fmt.Sprintf("Body of %s", chapter.Title), nil
}

func (f *fakeProvider) GenerateCoverImage(ctx context.Context, prompt, sizeTier string) (*entity.ImageData, error) {
	f.calls++
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &entity.ImageData{MIMEType: "image/png", Data: []byte{1, 2, 3}, Provider: f.name}, nil
}

func (f *fakeProvider) EditCoverImage(ctx context.Context, image *entity.ImageData, prompt string) (*entity.ImageData, error) {
	return f.GenerateCoverImage(ctx, prompt, "medium")
}

func testOutline(chapters int) *entity.BookOutline {
	o := &entity.BookOutline{Title: "Test Book"}
	for i := 0; i < chapters; i++ {
		o.Chapters = append(o.Chapters, entity.ChapterOutline{
			Title:       fmt.Sprintf("Chapter %d", i+1),
			Description: fmt.Sprintf("About part %d", i+1),
		})
	}
	return o
}

func TestFallbackFirstSuccessStopsChain(t *testing.T) {
	failing := &fakeProvider{name: "first", outlineErr: errors.New("boom")}
	working := &fakeProvider{name: "second"}
	unreached := &fakeProvider{name: "third"}

	fb := NewFallback([]Provider{failing, working, unreached})

	outline, err := fb.GenerateOutline(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.NoError(t, err)
	assert.Equal(t, "Test Book", outline.Title)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
	assert.Equal(t, 0, unreached.calls, "providers after the first success must not be called")
}

func TestFallbackExhaustedAggregatesReasons(t *testing.T) {
	first := &fakeProvider{name: "alpha", outlineErr: errors.New("alpha down")}
	second := &fakeProvider{name: "beta", outlineErr: errors.New("beta down")}

	fb := NewFallback([]Provider{first, second})

	_, err := fb.GenerateOutline(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeAllProvidersFailed, appErr.Code)
	assert.Contains(t, appErr.Detail, "alpha")
	assert.Contains(t, appErr.Detail, "alpha down")
	assert.Contains(t, appErr.Detail, "beta")
	assert.Contains(t, appErr.Detail, "beta down")
}

func TestFallbackEmptyChain(t *testing.T) {
	fb := NewFallback(nil)

	_, err := fb.GenerateOutline(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAllProvidersFailed, apperrors.CodeOf(err))
}

func TestFallbackChapterReportsWinningProvider(t *testing.T) {
	failing := &fakeProvider{name: "first", chapterErr: errors.New("no capacity")}
	working := &fakeProvider{name: "second", chapterText: "## Section\n\ntext"}

	fb := NewFallback([]Provider{failing, working})

	markdown, provider, err := fb.GenerateChapter(context.Background(), entity.GenerationOptions{}, testOutline(1), entity.ChapterOutline{Title: "Chapter 1"}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", provider)
	assert.Contains(t, markdown, "## Section")
}

func TestFallbackCanceledContextIsNotTimeout(t *testing.T) {
	provider := &fakeProvider{name: "p"}
	fb := NewFallback([]Provider{provider})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fb.GenerateOutline(ctx, entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCanceled, apperrors.CodeOf(err))
	assert.Equal(t, 0, provider.calls, "no provider is attempted after cancellation")
}

func TestFallbackExpiredDeadlineIsTimeout(t *testing.T) {
	provider := &fakeProvider{name: "p"}
	fb := NewFallback([]Provider{provider})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := fb.GenerateOutline(ctx, entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.CodeOf(err))
}

func TestFallbackCoverImage(t *testing.T) {
	noImages := &fakeProvider{name: "text-only", imageErr: apperrors.ProviderError("text-only", errors.New("image generation not supported"))}
	withImages := &fakeProvider{name: "imagegen"}

	fb := NewFallback([]Provider{noImages, withImages})

	img, err := fb.GenerateCoverImage(context.Background(), "a lighthouse at dusk", "medium")
	require.NoError(t, err)
	assert.Equal(t, "imagegen", img.Provider)
	assert.NotEmpty(t, img.Data)
}

package llm

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

// scriptedCompleter 按脚本依次返回预设结果
type scriptedCompleter struct {
	name    string
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	text string
	err  error
}

func (s *scriptedCompleter) Name() string { return s.name }

func (s *scriptedCompleter) complete(ctx context.Context, system, user string) (string, error) {
	if s.calls >= len(s.results) {
		return "", errors.New("no more scripted results")
	}
	r := s.results[s.calls]
	s.calls++
	return r.text, r.err
}

const validOutlineJSON = `{"title":"T","chapters":[{"title":"C1"},{"title":"C2"}]}`

func testPolicy(sleep SleepFunc) callPolicy {
	return callPolicy{
		outlineTimeout: time.Minute,
		chapterTimeout: time.Minute,
		imageTimeout:   time.Minute,
		maxRetries:     2,
		backoff:        time.Second,
		sleep:          sleep,
	}
}

func TestRetryOn5xxThenSuccess(t *testing.T) {
	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	backend := &scriptedCompleter{
		name: "flaky",
		results: []scriptedResult{
			{err: errors.New("unexpected status 503 service unavailable")},
			{err: errors.New("unexpected status 503 service unavailable")},
			{text: validOutlineJSON},
		},
	}
	p := newTextProvider(backend, testPolicy(sleep))

	outline, err := p.GenerateOutline(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.NoError(t, err)
	assert.Equal(t, "T", outline.Title)
	assert.Equal(t, 3, backend.calls, "two retries after two 503 responses")

	// 指数退避 1s、2s，总等待不少于 3s
	require.Len(t, slept, 2)
	assert.Equal(t, time.Second, slept[0])
	assert.Equal(t, 2*time.Second, slept[1])
	var total time.Duration
	for _, d := range slept {
		total += d
	}
	assert.GreaterOrEqual(t, total, 3*time.Second)
}

func TestRetryExhaustedReturnsProviderError(t *testing.T) {
	sleep := func(ctx context.Context, d time.Duration) error { return nil }
	backend := &scriptedCompleter{
		name: "down",
		results: []scriptedResult{
			{err: errors.New("429 too many requests")},
			{err: errors.New("429 too many requests")},
			{err: errors.New("429 too many requests")},
		},
	}
	p := newTextProvider(backend, testPolicy(sleep))

	_, err := p.GenerateOutline(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProviderError, apperrors.CodeOf(err))
	assert.Equal(t, 3, backend.calls)
}

func TestMalformedResponseIsNotRetried(t *testing.T) {
	sleep := func(ctx context.Context, d time.Duration) error {
		t.Fatal("parse failures must not trigger a retry")
		return nil
	}
	backend := &scriptedCompleter{
		name:    "weird",
		results: []scriptedResult{{text: "this is not json"}},
	}
	p := newTextProvider(backend, testPolicy(sleep))

	_, err := p.GenerateOutline(context.Background(), entity.GenerationOptions{Topic: "go"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedResponse, apperrors.CodeOf(err))
	assert.Equal(t, 1, backend.calls)
}

func TestEmptyChapterIsFailure(t *testing.T) {
	sleep := func(ctx context.Context, d time.Duration) error { return nil }
	backend := &scriptedCompleter{
		name:    "silent",
		results: []scriptedResult{{text: "   \n  "}},
	}
	p := newTextProvider(backend, testPolicy(sleep))

	_, err := p.GenerateChapter(context.Background(), entity.GenerationOptions{}, &entity.BookOutline{Title: "T", Chapters: []entity.ChapterOutline{{Title: "C1"}}}, entity.ChapterOutline{Title: "C1"}, 0, 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeEmptyResponse, apperrors.CodeOf(err))
}

func TestTextOnlyBackendRejectsImageRequests(t *testing.T) {
	backend := &scriptedCompleter{name: "text-only"}
	p := newTextProvider(backend, testPolicy(nil))

	_, err := p.GenerateCoverImage(context.Background(), "a cover", "medium")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProviderError, apperrors.CodeOf(err))
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{errors.New("rate limit exceeded"), true},
		{errors.New("502 bad gateway"), true},
		{errors.New("internal server error"), true},
		{errors.New("invalid api key"), false},
		{apperrors.EmptyResponse("p"), false},
		{fmt.Errorf("wrapped: %w", errors.New("service unavailable")), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.retryable, isRetryable(tc.err), "error: %v", tc.err)
	}
}

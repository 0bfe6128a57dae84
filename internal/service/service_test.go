package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

const testURL = "https://youtu.be/dQw4w9WgXcQ"

type stubFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *stubFetcher) FetchLanguage(_ context.Context, url, lang string) (engine.RawTranscript, error) {
	f.calls.Add(1)
	ref, err := engine.ResolveVideo(url)
	if err != nil {
		return engine.RawTranscript{}, &engine.FetchError{Kind: engine.ErrInvalidURL}
	}
	if f.err != nil {
		return engine.RawTranscript{}, f.err
	}
	return engine.RawTranscript{
		Video:    ref,
		Language: lang,
		Kind:     engine.KindManual,
		Fragments: []engine.Fragment{
			{Text: "[Music] welcome back"},
			{Text: "welcome back"},
			{Text: "today we talk about Go"},
		},
	}, nil
}

type stubCompleter struct {
	model string
	calls *atomic.Int32
}

func (c stubCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	c.calls.Add(1)
	if c.model == "broken" {
		return "", errors.New("upstream 500")
	}
	return "summary by " + c.model, nil
}

func newSummarizer(t *testing.T, calls *atomic.Int32, models ...string) *engine.Summarizer {
	t.Helper()
	s, err := engine.NewSummarizer(engine.SummarizerConfig{Models: models, MaxInputChars: 10_000},
		func(model string) engine.Completer { return stubCompleter{model: model, calls: calls} })
	require.NoError(t, err)
	return s
}

func freshCache(t *testing.T) {
	t.Helper()
	engine.InitCache("", time.Minute, 100, time.Minute)
	t.Cleanup(engine.CloseCache)
}

func openArchive(t *testing.T) archive.Store {
	t.Helper()
	store, err := archive.Open(context.Background(), filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTranscriptCachedPerLanguage(t *testing.T) {
	freshCache(t)
	f := &stubFetcher{}
	var llmCalls atomic.Int32
	svc := New(f, newSummarizer(t, &llmCalls, "m1"), nil, "en")
	ctx := context.Background()

	out, err := svc.Transcript(ctx, testURL, "")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", out.Video.ID)
	assert.Equal(t, "en", out.Language)
	assert.Equal(t, 3, out.Fragments)
	assert.Equal(t, "welcome back today we talk about Go", out.Text)

	_, err = svc.Transcript(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "en")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load(), "equivalent URL should hit the cache")

	_, err = svc.Transcript(ctx, testURL, "de")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "another language is a separate entry")
	assert.Zero(t, llmCalls.Load())
}

func TestSummarizeURLArchivesAndCaches(t *testing.T) {
	freshCache(t)
	f := &stubFetcher{}
	var llmCalls atomic.Int32
	store := openArchive(t)
	svc := New(f, newSummarizer(t, &llmCalls, "broken", "good"), store, "en")
	ctx := context.Background()

	out, err := svc.SummarizeURL(ctx, testURL, "")
	require.NoError(t, err)
	assert.Equal(t, "summary by good", out.Summary)
	assert.Equal(t, "good", out.Model)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "broken", out.Failures[0].Model)
	require.NotNil(t, out.Video)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", out.Video.URL)
	assert.NotEmpty(t, out.ID)
	assert.False(t, out.Cached)

	again, err := svc.SummarizeURL(ctx, testURL, "en")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, out.ID, again.ID)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, int32(2), llmCalls.Load())

	entry, err := svc.Get(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", entry.VideoID)
	assert.Equal(t, "good", entry.Model)

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSummarizeURLFetchFailureSkipsSummarizer(t *testing.T) {
	freshCache(t)
	f := &stubFetcher{err: &engine.FetchError{Kind: engine.ErrNoTranscript, VideoID: "dQw4w9WgXcQ"}}
	var llmCalls atomic.Int32
	store := openArchive(t)
	svc := New(f, newSummarizer(t, &llmCalls, "good"), store, "en")

	_, err := svc.SummarizeURL(context.Background(), testURL, "")
	assert.ErrorIs(t, err, engine.ErrNoTranscript)
	assert.Zero(t, llmCalls.Load())

	history, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSummarizeURLInvalid(t *testing.T) {
	freshCache(t)
	var llmCalls atomic.Int32
	svc := New(&stubFetcher{}, newSummarizer(t, &llmCalls, "good"), nil, "en")

	_, err := svc.SummarizeURL(context.Background(), "https://vimeo.com/123", "")
	assert.ErrorIs(t, err, engine.ErrInvalidURL)
	assert.Zero(t, llmCalls.Load())
}

func TestSummarizeURLAllModelsFail(t *testing.T) {
	freshCache(t)
	var llmCalls atomic.Int32
	store := openArchive(t)
	svc := New(&stubFetcher{}, newSummarizer(t, &llmCalls, "broken"), store, "en")

	_, err := svc.SummarizeURL(context.Background(), testURL, "")
	assert.ErrorIs(t, err, engine.ErrAllModelsExhausted)

	history, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history, "failed summaries are not archived")
}

func TestSummarizeText(t *testing.T) {
	freshCache(t)
	var llmCalls atomic.Int32
	store := openArchive(t)
	svc := New(&stubFetcher{}, newSummarizer(t, &llmCalls, "good"), store, "en")
	ctx := context.Background()

	out, err := svc.SummarizeText(ctx, "<c>hello</c> hello world [Applause]")
	require.NoError(t, err)
	assert.Equal(t, "summary by good", out.Summary)
	assert.Nil(t, out.Video)
	assert.Equal(t, len("hello world"), out.TranscriptChars)
	assert.NotEmpty(t, out.ID)

	_, err = svc.SummarizeText(ctx, "  [Music]  ")
	assert.ErrorIs(t, err, engine.ErrEmptyInput)
	assert.Equal(t, int32(1), llmCalls.Load())
}

func TestArchiveDisabled(t *testing.T) {
	var llmCalls atomic.Int32
	svc := New(&stubFetcher{}, newSummarizer(t, &llmCalls, "good"), nil, "")

	_, err := svc.History(context.Background(), 5)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = svc.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestRender(t *testing.T) {
	e := archive.Entry{
		ID:        "0123456789abcdef",
		VideoID:   "dQw4w9WgXcQ",
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Model:     "good",
		Summary:   "## Points\n- one\n",
		Truncated: true,
		CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	txt, err := Render(e, "txt")
	require.NoError(t, err)
	assert.Equal(t, "Source: https://www.youtube.com/watch?v=dQw4w9WgXcQ\nModel: good\nCreated: 2026-05-01T10:00:00Z\n"+
		"Note: the transcript was truncated before summarizing.\n\n## Points\n- one\n", string(txt))

	md, err := Render(e, "MD")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Summary of [dQw4w9WgXcQ](https://www.youtube.com/watch?v=dQw4w9WgXcQ)\n"))
	assert.Contains(t, string(md), "_Model: good, 2026-05-01T10:00:00Z_")

	_, err = Render(e, "pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "summary-dQw4w9WgXcQ.md", Filename(e, "md"))
	assert.Equal(t, "summary-01234567.txt", Filename(archive.Entry{ID: e.ID}, ""))
}

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	raw   RawTranscript
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (RawTranscript, error) {
	s.calls++
	if s.err != nil {
		return RawTranscript{}, s.err
	}
	return s.raw, nil
}

type stubSummarizer struct {
	got   []string
	reply SummaryResult
	err   error
}

func (s *stubSummarizer) Summarize(_ context.Context, text string) (SummaryResult, error) {
	s.got = append(s.got, text)
	return s.reply, s.err
}

func TestPipelineRun(t *testing.T) {
	f := &stubFetcher{raw: RawTranscript{
		Video:     VideoReference{ID: "dQw4w9WgXcQ"},
		Fragments: []Fragment{{Text: "[Music] hello hello"}, {Text: "world"}},
	}}
	s := &stubSummarizer{reply: SummaryResult{Text: "greeting", Model: "m"}}

	out, err := NewPipeline(f, s).Run(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", out.Video.ID)
	assert.Equal(t, "hello world", out.Transcript.Text)
	assert.Equal(t, "greeting", out.Summary.Text)
	assert.Equal(t, []string{"hello world"}, s.got, "summarizer receives cleaned text")
}

func TestPipelineFetchFailureShortCircuits(t *testing.T) {
	f := &stubFetcher{err: &FetchError{Kind: ErrNoTranscript, VideoID: "dQw4w9WgXcQ"}}
	s := &stubSummarizer{}

	_, err := NewPipeline(f, s).Run(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrNoTranscript)
	assert.Empty(t, s.got)
}

func TestPipelineSummaryFailureKeepsTranscript(t *testing.T) {
	f := &stubFetcher{raw: RawTranscript{Fragments: []Fragment{{Text: "some words"}}}}
	s := &stubSummarizer{err: &AllModelsExhaustedError{Failures: []ModelFailure{{Model: "a", Reason: "x"}}}}

	out, err := NewPipeline(f, s).Run(context.Background(), "u")
	assert.ErrorIs(t, err, ErrAllModelsExhausted)
	assert.Equal(t, "some words", out.Transcript.Text)
}

func TestPipelineRunText(t *testing.T) {
	s := &stubSummarizer{reply: SummaryResult{Text: "ok", Model: "m"}}
	cleaned, res, err := NewPipeline(&stubFetcher{}, s).RunText(context.Background(), "00:01 pasted pasted text")
	require.NoError(t, err)
	assert.Equal(t, "pasted text", cleaned.Text)
	assert.Equal(t, "ok", res.Text)
}

func TestUserMessageDistinct(t *testing.T) {
	errs := []error{
		&FetchError{Kind: ErrInvalidURL},
		&FetchError{Kind: ErrNoTranscript, VideoID: "x"},
		&FetchError{Kind: ErrNetwork, Err: errors.New("dial tcp: refused")},
		ErrEmptyInput,
		&AllModelsExhaustedError{},
	}
	seen := map[string]bool{}
	for _, err := range errs {
		msg := UserMessage(err)
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate message %q", msg)
		seen[msg] = true
	}
	assert.Equal(t, "", UserMessage(nil))
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&FetchError{Kind: ErrNetwork, VideoID: "abc", Err: cause})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoTranscript)
	assert.Equal(t, "fetch transcript abc: network error: connection reset", err.Error())
}

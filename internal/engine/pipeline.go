package engine

import (
	"context"
	"log/slog"
)

// TranscriptFetcher resolves a video URL and returns its caption fragments.
// Errors are *FetchError wrapping ErrInvalidURL, ErrNoTranscript or ErrNetwork.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, url string) (RawTranscript, error)
}

// TranscriptSummarizer turns cleaned text into a summary.
type TranscriptSummarizer interface {
	Summarize(ctx context.Context, text string) (SummaryResult, error)
}

// Pipeline runs Fetch → Clean → Summarize in strict order.
type Pipeline struct {
	fetcher    TranscriptFetcher
	summarizer TranscriptSummarizer
}

// NewPipeline wires a fetcher and a summarizer.
func NewPipeline(fetcher TranscriptFetcher, summarizer TranscriptSummarizer) *Pipeline {
	return &Pipeline{fetcher: fetcher, summarizer: summarizer}
}

// Transcript fetches and cleans without summarizing.
func (p *Pipeline) Transcript(ctx context.Context, url string) (VideoReference, CleanedTranscript, error) {
	raw, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return VideoReference{}, CleanedTranscript{}, err
	}
	return raw.Video, Clean(raw), nil
}

// Run executes the full pipeline for a video URL.
// A fetch failure short-circuits before cleaning or summarizing.
func (p *Pipeline) Run(ctx context.Context, url string) (out PipelineResult, err error) {
	metrics.PipelineRuns.Add(1)
	_ = TrackOperation(ctx, "pipeline:"+url, func(ctx context.Context) error {
		out, err = p.run(ctx, url)
		return err
	})
	return
}

func (p *Pipeline) run(ctx context.Context, url string) (PipelineResult, error) {
	video, cleaned, err := p.Transcript(ctx, url)
	if err != nil {
		return PipelineResult{}, err
	}
	slog.Debug("pipeline: transcript cleaned", slog.String("video", video.ID), slog.Int("chars", len(cleaned.Text)))

	summary, err := p.summarizer.Summarize(ctx, cleaned.Text)
	if err != nil {
		return PipelineResult{Video: video, Transcript: cleaned}, err
	}
	return PipelineResult{Video: video, Transcript: cleaned, Summary: summary}, nil
}

// RunText cleans pasted transcript text and summarizes it.
func (p *Pipeline) RunText(ctx context.Context, text string) (CleanedTranscript, SummaryResult, error) {
	metrics.PipelineRuns.Add(1)
	cleaned := CleanText(text)
	summary, err := p.summarizer.Summarize(ctx, cleaned.Text)
	return cleaned, summary, err
}

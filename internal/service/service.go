// Package service composes the transcript fetcher, the summarizer, the result
// cache and the summary archive behind the operations shared by the MCP tools,
// the REST API and the CLI.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// ErrArchiveDisabled is returned by history lookups when no archive is configured.
var ErrArchiveDisabled = errors.New("summary archive is not configured")

// Fetcher downloads the caption fragments of a video in a given language.
type Fetcher interface {
	FetchLanguage(ctx context.Context, url, lang string) (engine.RawTranscript, error)
}

// Summarizer is engine.TranscriptSummarizer plus its candidate list,
// which is part of the result cache key.
type Summarizer interface {
	engine.TranscriptSummarizer
	Models() []string
}

// Service is safe for concurrent use.
type Service struct {
	fetcher    Fetcher
	summarizer Summarizer
	archive    archive.Store // nil = archive disabled
	lang       string
}

// New wires the components. store may be nil.
func New(fetcher Fetcher, summarizer Summarizer, store archive.Store, lang string) *Service {
	if lang == "" {
		lang = "en"
	}
	return &Service{fetcher: fetcher, summarizer: summarizer, archive: store, lang: lang}
}

// TranscriptOutput is a cleaned transcript with its provenance.
type TranscriptOutput struct {
	Video     engine.VideoReference `json:"video"`
	Language  string                `json:"language"`
	Kind      string                `json:"kind"`
	Fragments int                   `json:"fragments"`
	Text      string                `json:"text"`
}

// SummaryOutput is one produced summary.
type SummaryOutput struct {
	ID              string                 `json:"id,omitempty"` // archive id
	Video           *engine.VideoReference `json:"video,omitempty"`
	Summary         string                 `json:"summary"`
	Model           string                 `json:"model"`
	Truncated       bool                   `json:"truncated,omitempty"`
	Failures        []engine.ModelFailure  `json:"failures,omitempty"`
	TranscriptChars int                    `json:"transcript_chars"`
	Cached          bool                   `json:"cached,omitempty"`
}

// Entry converts the output to its archived form.
func (o SummaryOutput) Entry() archive.Entry {
	e := archive.Entry{
		ID:              o.ID,
		Model:           o.Model,
		Summary:         o.Summary,
		Truncated:       o.Truncated,
		TranscriptChars: o.TranscriptChars,
	}
	if o.Video != nil {
		e.VideoID = o.Video.ID
		e.SourceURL = o.Video.URL
	}
	return e
}

// Transcript fetches and cleans the transcript of url. lang "" uses the default.
func (s *Service) Transcript(ctx context.Context, url, lang string) (TranscriptOutput, error) {
	lang = s.language(lang)
	raw, err := s.rawTranscript(ctx, url, lang)
	if err != nil {
		return TranscriptOutput{}, err
	}
	return TranscriptOutput{
		Video:     raw.Video,
		Language:  raw.Language,
		Kind:      raw.Kind,
		Fragments: len(raw.Fragments),
		Text:      engine.Clean(raw).Text,
	}, nil
}

// SummarizeURL runs the full pipeline for url, consulting the result cache first.
// Successful summaries are archived when an archive is configured.
func (s *Service) SummarizeURL(ctx context.Context, url, lang string) (SummaryOutput, error) {
	lang = s.language(lang)

	var key string
	if ref, err := engine.ResolveVideo(url); err == nil {
		key = engine.CacheKey("summary", ref.ID, lang, strings.Join(s.summarizer.Models(), ","))
		if out, ok := engine.CacheLoadJSON[SummaryOutput](ctx, key); ok {
			slog.Debug("service: summary cache hit", slog.String("video", ref.ID))
			out.Cached = true
			return out, nil
		}
	}

	res, err := engine.NewPipeline(langFetcher{s: s, lang: lang}, s.summarizer).Run(ctx, url)
	if err != nil {
		return SummaryOutput{}, err
	}
	video := res.Video
	out := s.save(ctx, SummaryOutput{
		Video:           &video,
		Summary:         res.Summary.Text,
		Model:           res.Summary.Model,
		Truncated:       res.Summary.Truncated,
		Failures:        res.Summary.Failures,
		TranscriptChars: utf8.RuneCountInString(res.Transcript.Text),
	})
	if key != "" {
		engine.CacheStoreJSON(ctx, key, out)
	}
	return out, nil
}

// SummarizeText cleans and summarizes pasted transcript text.
func (s *Service) SummarizeText(ctx context.Context, text string) (SummaryOutput, error) {
	cleaned, res, err := engine.NewPipeline(langFetcher{s: s, lang: s.lang}, s.summarizer).RunText(ctx, text)
	if err != nil {
		return SummaryOutput{}, err
	}
	return s.save(ctx, SummaryOutput{
		Summary:         res.Text,
		Model:           res.Model,
		Truncated:       res.Truncated,
		Failures:        res.Failures,
		TranscriptChars: utf8.RuneCountInString(cleaned.Text),
	}), nil
}

// History lists archived summaries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]archive.Entry, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.List(ctx, limit)
}

// Get returns one archived summary.
func (s *Service) Get(ctx context.Context, id string) (archive.Entry, error) {
	if s.archive == nil {
		return archive.Entry{}, ErrArchiveDisabled
	}
	return s.archive.Get(ctx, id)
}

// Models returns the configured candidate models in order.
func (s *Service) Models() []string {
	return s.summarizer.Models()
}

// save archives out and records the assigned id. Archive failures are logged,
// the summary is still returned.
func (s *Service) save(ctx context.Context, out SummaryOutput) SummaryOutput {
	if s.archive == nil {
		return out
	}
	e, err := s.archive.Save(ctx, out.Entry())
	if err != nil {
		slog.Warn("service: archive save failed", slog.Any("error", err))
		return out
	}
	out.ID = e.ID
	return out
}

func (s *Service) language(lang string) string {
	if lang = strings.TrimSpace(lang); lang != "" {
		return lang
	}
	return s.lang
}

// rawTranscript serves fetched transcripts from the cache per (video, language).
func (s *Service) rawTranscript(ctx context.Context, url, lang string) (engine.RawTranscript, error) {
	ref, err := engine.ResolveVideo(url)
	if err != nil {
		// The fetcher reports the classified error.
		return s.fetcher.FetchLanguage(ctx, url, lang)
	}
	key := engine.CacheKey("transcript", ref.ID, lang)
	if raw, ok := engine.CacheLoadJSON[engine.RawTranscript](ctx, key); ok {
		slog.Debug("service: transcript cache hit", slog.String("video", ref.ID), slog.String("lang", lang))
		return raw, nil
	}
	raw, err := s.fetcher.FetchLanguage(ctx, url, lang)
	if err != nil {
		return engine.RawTranscript{}, err
	}
	engine.CacheStoreJSON(ctx, key, raw)
	return raw, nil
}

// langFetcher adapts the cached fetch path to engine.TranscriptFetcher.
type langFetcher struct {
	s    *Service
	lang string
}

func (f langFetcher) Fetch(ctx context.Context, url string) (engine.RawTranscript, error) {
	return f.s.rawTranscript(ctx, url, f.lang)
}

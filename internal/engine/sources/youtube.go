package sources

// YouTube transcript fetching is split across three files by responsibility:
//   youtube.go            — Fetcher, configuration and error classification
//   youtube_innertube.go  — Innertube API types, constants, and low-level HTTP primitives
//   youtube_transcript.go — track discovery strategies, track choice and timedtext parsing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// DefaultBaseURL is the YouTube origin used for watch pages and Innertube.
const DefaultBaseURL = "https://www.youtube.com"

// FetcherConfig is immutable once passed to NewFetcher.
type FetcherConfig struct {
	BaseURL         string // default DefaultBaseURL; tests point it at httptest
	DefaultLanguage string // preferred caption language, e.g. "en"
	HTTPClient      *http.Client
	BrowserClient   *engine.BrowserClient // optional; used for the watch page when set
	RequestTimeout  time.Duration         // per outbound request; 0 = 15s
	Retry           engine.RetryConfig
	Limiter         *rate.Limiter // nil = unthrottled
}

// Fetcher resolves a video URL to caption fragments. Safe for concurrent use.
type Fetcher struct {
	cfg FetcherConfig
}

// NewFetcher fills defaults and returns a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Fetcher{cfg: cfg}
}

// NewFetcherFromEngine builds a Fetcher from the engine configuration.
func NewFetcherFromEngine() *Fetcher {
	c := engine.Cfg
	var lim *rate.Limiter
	if c.YouTubeRPS > 0 {
		lim = rate.NewLimiter(rate.Limit(c.YouTubeRPS), 2)
	}
	return NewFetcher(FetcherConfig{
		DefaultLanguage: c.TranscriptLanguage,
		HTTPClient:      c.HTTPClient,
		BrowserClient:   c.BrowserClient,
		RequestTimeout:  c.FetchTimeout,
		Retry:           engine.DefaultRetryConfig,
		Limiter:         lim,
	})
}

// Fetch resolves rawURL and downloads the best caption track in the default language.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (engine.RawTranscript, error) {
	return f.FetchLanguage(ctx, rawURL, "")
}

// FetchLanguage is Fetch with an explicit language preference; "" uses the default.
func (f *Fetcher) FetchLanguage(ctx context.Context, rawURL, lang string) (engine.RawTranscript, error) {
	ref, err := engine.ResolveVideo(rawURL)
	if err != nil {
		return engine.RawTranscript{}, &engine.FetchError{Kind: engine.ErrInvalidURL}
	}
	if lang == "" {
		lang = f.cfg.DefaultLanguage
	}
	engine.IncrTranscriptRequests()

	raw, err := f.fetch(ctx, ref, lang)
	if err != nil {
		engine.IncrFetchErrors()
		slog.Warn("youtube: transcript unavailable", slog.String("id", ref.ID), slog.Any("error", err))
		return engine.RawTranscript{}, err
	}
	slog.Debug("youtube: transcript fetched",
		slog.String("id", ref.ID), slog.String("lang", raw.Language),
		slog.String("kind", raw.Kind), slog.Int("fragments", len(raw.Fragments)))
	return raw, nil
}

// fetch tries each discovery strategy until one yields fragments.
// A definitive "no captions" answer from any strategy wins over transport failures.
func (f *Fetcher) fetch(ctx context.Context, ref engine.VideoReference, lang string) (engine.RawTranscript, error) {
	var (
		netErrs    []error
		noCaptions error
	)
	classify := func(strategy string, err error) {
		var nc *noCaptionsError
		if errors.As(err, &nc) {
			if noCaptions == nil {
				noCaptions = err
			}
		} else {
			netErrs = append(netErrs, err)
		}
		slog.Debug("youtube: strategy failed", slog.String("strategy", strategy), slog.String("id", ref.ID), slog.Any("error", err))
	}

	for _, s := range f.trackStrategies() {
		if ctx.Err() != nil {
			break
		}
		tracks, err := s.fn(ctx, ref.ID)
		if err != nil {
			classify(s.name, err)
			continue
		}
		track, ok := pickBestTrack(tracks, lang)
		if !ok {
			classify(s.name, &noCaptionsError{reason: "all caption tracks require a PoToken"})
			continue
		}
		frags, err := f.fetchTimedText(ctx, track.BaseURL)
		if err != nil {
			classify(s.name+"/timedtext", err)
			continue
		}
		return engine.RawTranscript{Video: ref, Language: track.LanguageCode, Kind: track.kind(), Fragments: frags}, nil
	}

	if ctx.Err() == nil {
		raw, err := f.fetchViaEngagementPanel(ctx, ref.ID, lang)
		if err == nil {
			raw.Video = ref
			return raw, nil
		}
		classify("engagement_panel", err)
	}

	if noCaptions != nil {
		return engine.RawTranscript{}, &engine.FetchError{Kind: engine.ErrNoTranscript, VideoID: ref.ID, Err: noCaptions}
	}
	if err := ctx.Err(); err != nil {
		netErrs = append(netErrs, err)
	}
	return engine.RawTranscript{}, &engine.FetchError{Kind: engine.ErrNetwork, VideoID: ref.ID, Err: errors.Join(netErrs...)}
}

type trackStrategy struct {
	name string
	fn   func(ctx context.Context, videoID string) ([]captionTrack, error)
}

func (f *Fetcher) trackStrategies() []trackStrategy {
	return []trackStrategy{
		{"watch_page", f.tracksViaWatchPage},
		{"android_player", f.tracksViaPlayer},
	}
}

// noCaptionsError is a definitive answer that the video has no usable captions.
type noCaptionsError struct {
	reason string
}

func (e *noCaptionsError) Error() string { return "no captions: " + e.reason }

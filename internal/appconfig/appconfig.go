// Package appconfig builds the engine configuration from the environment and
// wires the long-lived components shared by the MCP server, the REST API and the CLI.
package appconfig

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/openrouter"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
	"github.com/anatolykoptev/go_ytsum/internal/service"
)

// DefaultModels is the candidate order used when LLM_MODELS is unset.
var DefaultModels = []string{
	"anthropic/claude-3-5-sonnet-20241022",
	"anthropic/claude-3-sonnet-20240229",
	"openai/gpt-4o",
	"openai/gpt-3.5-turbo",
}

// Load reads the engine configuration from the environment.
func Load() engine.Config {
	apiKey := env.Str("OPENROUTER_API_KEY", "")
	if apiKey == "" {
		apiKey = env.Str("LLM_API_KEY", "")
	}
	useBrowser, err := strconv.ParseBool(env.Str("BROWSER_CLIENT", "true"))
	if err != nil {
		slog.Warn("invalid BROWSER_CLIENT, using plain HTTP", slog.Any("error", err))
	}
	return engine.Config{
		LLMProvider:            strings.ToLower(env.Str("LLM_PROVIDER", engine.ProviderOpenRouter)),
		LLMAPIKey:              apiKey,
		LLMAPIKeyFallbacks:     env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:             env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModels:              env.List("LLM_MODELS", strings.Join(DefaultModels, ",")),
		LLMMaxTokens:           env.Int("LLM_MAX_TOKENS", 1000),
		LLMTemperature:         env.Float("LLM_TEMPERATURE", 0.3),
		LLMRequestTimeout:      env.Duration("LLM_REQUEST_TIMEOUT", 30*time.Second),
		OpenRouterBaseURL:      env.Str("OPENROUTER_BASE_URL", openrouter.DefaultBaseURL),
		OpenRouterAllowedHosts: env.List("OPENROUTER_ALLOWED_HOSTS", ""),
		TranscriptLanguage:     env.Str("TRANSCRIPT_LANGUAGE", "en"),
		SummaryMaxChars:        env.Int("SUMMARY_MAX_INPUT_CHARS", 40000),
		SummaryMinChars:        env.Int("SUMMARY_MIN_INPUT_CHARS", 20),
		FetchTimeout:           env.Duration("FETCH_TIMEOUT", 15*time.Second),
		YouTubeRPS:             env.Float("YOUTUBE_RPS", 2),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		UseBrowser:           useBrowser,
		WebshareAPIKey:       env.Str("WEBSHARE_API_KEY", ""),
		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 24*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 500),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		ArchiveDSN:           env.Str("ARCHIVE_DSN", "data/summaries.db"),
	}
}

// CompleterFactory returns the per-model completer constructor for c.LLMProvider.
func CompleterFactory(c engine.Config) (engine.CompleterFactory, error) {
	switch c.LLMProvider {
	case engine.ProviderOpenRouter:
		if err := openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts); err != nil {
			return nil, err
		}
		return func(model string) engine.Completer {
			return openrouter.New(c.LLMAPIKey, model, c.OpenRouterBaseURL,
				openrouter.WithMaxTokens(c.LLMMaxTokens),
				openrouter.WithTimeout(c.LLMRequestTimeout),
			)
		}, nil
	case engine.ProviderOpenAI:
		hc := &http.Client{Timeout: c.LLMRequestTimeout + 5*time.Second}
		return func(model string) engine.Completer {
			return engine.NewKitCompleter(c.LLMAPIBase, c.LLMAPIKey, c.LLMAPIKeyFallbacks, model,
				c.LLMMaxTokens, c.LLMTemperature, hc)
		}, nil
	}
	return nil, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
}

// Build validates c, initializes the engine and returns the service with a
// cleanup function that releases the cache and the archive.
func Build(ctx context.Context, c engine.Config) (*service.Service, func(), error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	factory, err := CompleterFactory(c)
	if err != nil {
		return nil, nil, err
	}

	fetcher := NewFetcher(c)
	c = *engine.Cfg
	engine.InitCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)

	summarizer, err := engine.NewSummarizer(engine.SummarizerConfig{
		Models:         c.LLMModels,
		MaxInputChars:  c.SummaryMaxChars,
		MinInputChars:  c.SummaryMinChars,
		RequestTimeout: c.LLMRequestTimeout,
	}, factory)
	if err != nil {
		engine.CloseCache()
		return nil, nil, err
	}

	var store archive.Store
	if c.ArchiveDSN != "" {
		store, err = archive.Open(ctx, c.ArchiveDSN)
		if err != nil {
			slog.Warn("archive init failed, history disabled", slog.Any("error", err))
			store = nil
		}
	}

	cleanup := func() {
		engine.CloseCache()
		if store != nil {
			if err := store.Close(); err != nil {
				slog.Warn("archive close failed", slog.Any("error", err))
			}
		}
	}
	slog.Info("engine initialized",
		slog.String("provider", c.LLMProvider),
		slog.Int("models", len(c.LLMModels)),
		slog.Bool("browser", c.BrowserClient != nil),
		slog.Bool("archive", store != nil))
	return service.New(fetcher, summarizer, store, c.TranscriptLanguage), cleanup, nil
}

// NewFetcher initializes the engine with c and returns a transcript fetcher.
// It needs no LLM credentials.
func NewFetcher(c engine.Config) *sources.Fetcher {
	if c.UseBrowser && c.BrowserClient == nil {
		c.BrowserClient = newBrowserClient(c)
	}
	engine.Init(c)
	return sources.NewFetcherFromEngine()
}

func newBrowserClient(c engine.Config) *engine.BrowserClient {
	timeout := int(c.FetchTimeout / time.Second)
	if timeout <= 0 {
		timeout = 15
	}
	bc, err := engine.NewBrowserClient(timeout, c.WebshareAPIKey)
	if err != nil {
		slog.Warn("stealth client init failed, using plain HTTP", slog.Any("error", err))
		return nil
	}
	return bc
}

package engine

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Generation backends selectable through LLMProvider.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMProvider            string
	LLMAPIKey              string
	LLMAPIKeyFallbacks     []string // openai provider only
	LLMAPIBase             string
	LLMModels              []string // candidates in preference order
	LLMMaxTokens           int
	LLMTemperature         float64
	LLMRequestTimeout      time.Duration
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	TranscriptLanguage string
	SummaryMaxChars    int
	SummaryMinChars    int

	FetchTimeout   time.Duration
	YouTubeRPS     float64        // 0 = unthrottled
	HTTPClient     *http.Client
	BrowserClient  *BrowserClient // nil = plain HTTP for the watch page
	UseBrowser     bool           // build BrowserClient at startup
	WebshareAPIKey string         // optional proxy pool for the browser client

	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	ArchiveDSN string // sqlite path or postgres:// URL; empty disables the archive
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}

// Validate reports configuration problems that would make every request fail.
func (c Config) Validate() error {
	if c.LLMAPIKey == "" {
		return errors.New("LLM API key is required (OPENROUTER_API_KEY or LLM_API_KEY)")
	}
	if len(c.LLMModels) == 0 {
		return errors.New("at least one model is required in LLM_MODELS")
	}
	switch c.LLMProvider {
	case ProviderOpenRouter, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (want %s or %s)", c.LLMProvider, ProviderOpenRouter, ProviderOpenAI)
	}
	if c.SummaryMaxChars <= 0 {
		return errors.New("SUMMARY_MAX_INPUT_CHARS must be > 0")
	}
	if c.SummaryMinChars < 0 || c.SummaryMinChars > c.SummaryMaxChars {
		return errors.New("SUMMARY_MIN_INPUT_CHARS must be between 0 and SUMMARY_MAX_INPUT_CHARS")
	}
	if c.TranscriptLanguage == "" {
		return errors.New("TRANSCRIPT_LANGUAGE is required")
	}
	return nil
}

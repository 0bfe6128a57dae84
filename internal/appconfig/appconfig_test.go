package appconfig

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/openrouter"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("LLM_API_KEY", "sk-fallback")
	t.Setenv("LLM_MODELS", "")
	t.Setenv("BROWSER_CLIENT", "false")

	c := Load()
	assert.Equal(t, engine.ProviderOpenRouter, c.LLMProvider)
	assert.Equal(t, "sk-fallback", c.LLMAPIKey)
	assert.Equal(t, DefaultModels, c.LLMModels)
	assert.Equal(t, "en", c.TranscriptLanguage)
	assert.Equal(t, openrouter.DefaultBaseURL, c.OpenRouterBaseURL)
	assert.False(t, c.UseBrowser)
	assert.NotNil(t, c.HTTPClient)
	assert.NoError(t, c.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	t.Setenv("LLM_API_KEY", "sk-other")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_MODELS", "a,b")
	t.Setenv("TRANSCRIPT_LANGUAGE", "de")
	t.Setenv("SUMMARY_MAX_INPUT_CHARS", "500")
	t.Setenv("LLM_REQUEST_TIMEOUT", "5s")

	c := Load()
	assert.Equal(t, "sk-or", c.LLMAPIKey, "OPENROUTER_API_KEY wins")
	assert.Equal(t, engine.ProviderOpenAI, c.LLMProvider)
	assert.Equal(t, []string{"a", "b"}, c.LLMModels)
	assert.Equal(t, "de", c.TranscriptLanguage)
	assert.Equal(t, 500, c.SummaryMaxChars)
	assert.Equal(t, 5*time.Second, c.LLMRequestTimeout)
}

func validConfig(t *testing.T) engine.Config {
	t.Helper()
	return engine.Config{
		LLMProvider:          engine.ProviderOpenRouter,
		LLMAPIKey:            "sk-test",
		LLMModels:            []string{"m1", "m2"},
		LLMMaxTokens:         100,
		LLMRequestTimeout:    time.Second,
		OpenRouterBaseURL:    openrouter.DefaultBaseURL,
		TranscriptLanguage:   "en",
		SummaryMaxChars:      1000,
		CacheTTL:             time.Minute,
		CacheMaxEntries:      10,
		CacheCleanupInterval: time.Minute,
		ArchiveDSN:           filepath.Join(t.TempDir(), "a.db"),
	}
}

func TestCompleterFactory(t *testing.T) {
	c := validConfig(t)
	f, err := CompleterFactory(c)
	require.NoError(t, err)
	a, ok := f("m2").(*openrouter.Adapter)
	require.True(t, ok)
	assert.Equal(t, "m2", a.Model())

	c.LLMProvider = engine.ProviderOpenAI
	f, err = CompleterFactory(c)
	require.NoError(t, err)
	_, ok = f("gpt").(*engine.KitCompleter)
	assert.True(t, ok)

	c.LLMProvider = engine.ProviderOpenRouter
	c.OpenRouterBaseURL = "http://evil.example.com"
	_, err = CompleterFactory(c)
	assert.Error(t, err)

	c.LLMProvider = "other"
	_, err = CompleterFactory(c)
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	svc, cleanup, err := Build(context.Background(), validConfig(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	assert.Equal(t, []string{"m1", "m2"}, svc.Models())

	history, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	c := validConfig(t)
	c.LLMAPIKey = ""
	_, _, err := Build(context.Background(), c)
	assert.Error(t, err)

	c = validConfig(t)
	c.LLMModels = nil
	_, _, err = Build(context.Background(), c)
	assert.Error(t, err)
}

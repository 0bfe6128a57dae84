package engine

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// KitCompleter adapts a go-kit llm.Client to Completer.
type KitCompleter struct {
	client *llm.Client
}

// NewKitCompleter builds an OpenAI-compatible completer for one model.
// fallbackKeys are tried by the client when apiKey is rate limited.
func NewKitCompleter(apiBase, apiKey string, fallbackKeys []string, model string, maxTokens int, temperature float64, hc *http.Client) *KitCompleter {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &KitCompleter{client: llm.NewClient(apiBase, apiKey, model,
		llm.WithFallbackKeys(fallbackKeys),
		llm.WithMaxTokens(maxTokens),
		llm.WithTemperature(temperature),
		llm.WithHTTPClient(hc),
	)}
}

// Complete sends one request with the given system and user prompts.
func (k *KitCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	metrics.LLMCalls.Add(1)
	resp, err := k.client.Complete(ctx, system, prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// stripFences removes markdown code fences wrapping the whole response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// Completer issues one chat completion request and returns the generated text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFactory builds a Completer bound to one model identifier.
type CompleterFactory func(model string) Completer

// SummarizerConfig is immutable once passed to NewSummarizer.
type SummarizerConfig struct {
	Models         []string      // candidates in preference order
	MaxInputChars  int           // transcript budget in runes
	MinInputChars  int           // shorter input is unsummarizable
	RequestTimeout time.Duration // per candidate; 0 = no extra deadline
	Instruction    string        // system prompt; empty = default
}

// Summarizer tries each candidate model once, in order, until one succeeds.
type Summarizer struct {
	cfg     SummarizerConfig
	factory CompleterFactory
}

// NewSummarizer validates cfg and returns a Summarizer.
func NewSummarizer(cfg SummarizerConfig, factory CompleterFactory) (*Summarizer, error) {
	if len(cfg.Models) == 0 {
		return nil, errors.New("summarizer: no candidate models configured")
	}
	if factory == nil {
		return nil, errors.New("summarizer: nil completer factory")
	}
	if cfg.MaxInputChars <= 0 {
		return nil, errors.New("summarizer: MaxInputChars must be > 0")
	}
	if cfg.Instruction == "" {
		cfg.Instruction = summarySystemPrompt
	}
	cfg.Models = append([]string(nil), cfg.Models...)
	return &Summarizer{cfg: cfg, factory: factory}, nil
}

// Models returns the candidate list in order.
func (s *Summarizer) Models() []string {
	return append([]string(nil), s.cfg.Models...)
}

// Summarize sends text to each candidate model in order and returns the first success.
// Empty input fails with ErrEmptyInput before any request; if every candidate
// fails the error is *AllModelsExhaustedError.
func (s *Summarizer) Summarize(ctx context.Context, text string) (SummaryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) < s.cfg.MinInputChars {
		return SummaryResult{}, ErrEmptyInput
	}

	prompt, truncated := s.buildPrompt(text)
	if truncated {
		slog.Info("summarize: transcript truncated", slog.Int("max_chars", s.cfg.MaxInputChars))
	}

	var failures []ModelFailure
	for _, model := range s.cfg.Models {
		if ctx.Err() != nil {
			break
		}
		out, err := s.attempt(ctx, model, prompt)
		if err != nil {
			metrics.ModelFailures.Add(1)
			slog.Warn("summarize: model failed", slog.String("model", model), slog.Any("error", err))
			failures = append(failures, ModelFailure{Model: model, Reason: err.Error()})
			continue
		}
		metrics.Summaries.Add(1)
		return SummaryResult{Text: out, Model: model, Truncated: truncated, Failures: failures}, nil
	}
	if err := ctx.Err(); err != nil && len(failures) < len(s.cfg.Models) {
		return SummaryResult{}, fmt.Errorf("summarize: %w", err)
	}
	return SummaryResult{}, &AllModelsExhaustedError{Failures: failures}
}

func (s *Summarizer) attempt(ctx context.Context, model, prompt string) (string, error) {
	metrics.ModelAttempts.Add(1)
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	out, err := s.factory(model).Complete(ctx, s.cfg.Instruction, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}

// buildPrompt embeds text, truncated to MaxInputChars runes, in the user template.
func (s *Summarizer) buildPrompt(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= s.cfg.MaxInputChars {
		return fmt.Sprintf(summaryUserPrompt, text, ""), false
	}
	cut := TruncateRunes(text, s.cfg.MaxInputChars, "")
	// Prefer a word boundary unless that would discard most of the budget.
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return fmt.Sprintf(summaryUserPrompt, cut, truncationNote), true
}

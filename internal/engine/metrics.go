package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	FetchErrors        atomic.Int64
	WatchPageRequests  atomic.Int64
	PlayerRequests     atomic.Int64
	TimedTextRequests  atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	ModelAttempts      atomic.Int64
	ModelFailures      atomic.Int64
	Summaries          atomic.Int64
	PipelineRuns       atomic.Int64
	ArchiveWrites      atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"transcript_requests", "fetch_errors",
	"watch_page_requests", "player_requests", "timedtext_requests",
	"llm_calls", "llm_errors",
	"model_attempts", "model_failures", "summaries",
	"pipeline_runs", "archive_writes",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"watch_page_requests": metrics.WatchPageRequests.Load(),
		"player_requests":     metrics.PlayerRequests.Load(),
		"timedtext_requests":  metrics.TimedTextRequests.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"model_attempts":      metrics.ModelAttempts.Load(),
		"model_failures":      metrics.ModelFailures.Load(),
		"summaries":           metrics.Summaries.Load(),
		"pipeline_runs":       metrics.PipelineRuns.Load(),
		"archive_writes":      metrics.ArchiveWrites.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ and archive sub-packages.
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrFetchErrors()        { metrics.FetchErrors.Add(1) }
func IncrWatchPage()          { metrics.WatchPageRequests.Add(1) }
func IncrPlayer()             { metrics.PlayerRequests.Add(1) }
func IncrTimedText()          { metrics.TimedTextRequests.Add(1) }
func IncrLLMCalls()           { metrics.LLMCalls.Add(1) }
func IncrLLMErrors()          { metrics.LLMErrors.Add(1) }
func IncrArchiveWrites()      { metrics.ArchiveWrites.Add(1) }

// slowThreshold is the duration above which TrackOperation logs a warning.
var slowThreshold = 5 * time.Second

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > slowThreshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}

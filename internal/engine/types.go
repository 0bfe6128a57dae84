package engine

import "time"

// Caption track kinds.
const (
	KindManual = "manual"
	KindASR    = "asr"
)

// VideoReference identifies one YouTube video.
type VideoReference struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Fragment is one timed caption line.
type Fragment struct {
	Text     string        `json:"text"`
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
}

// RawTranscript is the ordered caption fragments of one track.
type RawTranscript struct {
	Video     VideoReference `json:"video"`
	Language  string         `json:"language"`
	Kind      string         `json:"kind"`
	Fragments []Fragment     `json:"fragments"`
}

// CleanedTranscript is a single normalized block of transcript text.
type CleanedTranscript struct {
	Text string `json:"text"`
}

// SummaryResult is a successful summarization.
// Failures lists candidates that failed before Model succeeded.
type SummaryResult struct {
	Text      string         `json:"text"`
	Model     string         `json:"model"`
	Truncated bool           `json:"truncated,omitempty"`
	Failures  []ModelFailure `json:"failures,omitempty"`
}

// PipelineResult is the output of one full URL run.
type PipelineResult struct {
	Video      VideoReference    `json:"video"`
	Transcript CleanedTranscript `json:"transcript"`
	Summary    SummaryResult     `json:"summary"`
}

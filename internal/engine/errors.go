package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Fetch errors wrap one of the first three, summarizer errors the last two.
var (
	ErrInvalidURL         = errors.New("invalid youtube url")
	ErrNoTranscript       = errors.New("no transcript available")
	ErrNetwork            = errors.New("network error")
	ErrEmptyInput         = errors.New("empty input")
	ErrAllModelsExhausted = errors.New("all models exhausted")
)

// FetchError is returned by transcript fetchers.
// Kind is ErrInvalidURL, ErrNoTranscript or ErrNetwork.
type FetchError struct {
	Kind    error
	VideoID string
	Err     error
}

func (e *FetchError) Error() string {
	var sb strings.Builder
	sb.WriteString("fetch transcript")
	if e.VideoID != "" {
		sb.WriteString(" ")
		sb.WriteString(e.VideoID)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ModelFailure records why one candidate model failed.
type ModelFailure struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// AllModelsExhaustedError carries one failure record per attempted candidate.
type AllModelsExhaustedError struct {
	Failures []ModelFailure
}

func (e *AllModelsExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Model+": "+f.Reason)
	}
	return fmt.Sprintf("%s (%d attempted): %s", ErrAllModelsExhausted, len(e.Failures), strings.Join(parts, "; "))
}

func (e *AllModelsExhaustedError) Is(target error) bool {
	return target == ErrAllModelsExhausted
}

// UserMessage maps an error to an actionable message for end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return "That does not look like a YouTube video link. Use a watch, youtu.be, embed or shorts URL."
	case errors.Is(err, ErrNoTranscript):
		return "This video has no accessible captions. It may have captions disabled, be private or removed. Try another video or paste the transcript instead."
	case errors.Is(err, ErrNetwork):
		return "Could not reach YouTube. Check your internet connection and try again in a moment."
	case errors.Is(err, ErrEmptyInput):
		return "There is no transcript text to summarize. Paste a longer transcript or pick a video with spoken content."
	case errors.Is(err, ErrAllModelsExhausted):
		return "Every configured model failed to produce a summary. Check your API key and model list, then try again."
	default:
		return "Unexpected error: " + err.Error()
	}
}

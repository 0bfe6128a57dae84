package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
)

// Download formats.
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
)

// ErrUnknownFormat is returned by Render for anything but txt and md.
var ErrUnknownFormat = errors.New("unknown format (want txt or md)")

// Render formats an archived summary as a downloadable document.
func Render(e archive.Entry, format string) ([]byte, error) {
	var b strings.Builder
	switch strings.ToLower(format) {
	case "", FormatText:
		if e.SourceURL != "" {
			fmt.Fprintf(&b, "Source: %s\n", e.SourceURL)
		}
		fmt.Fprintf(&b, "Model: %s\n", e.Model)
		if !e.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "Created: %s\n", e.CreatedAt.UTC().Format(time.RFC3339))
		}
		if e.Truncated {
			b.WriteString("Note: the transcript was truncated before summarizing.\n")
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(e.Summary))
		b.WriteString("\n")
	case FormatMarkdown:
		if e.VideoID != "" {
			fmt.Fprintf(&b, "# Summary of [%s](%s)\n\n", e.VideoID, e.SourceURL)
		} else {
			b.WriteString("# Transcript summary\n\n")
		}
		fmt.Fprintf(&b, "_Model: %s", e.Model)
		if !e.CreatedAt.IsZero() {
			fmt.Fprintf(&b, ", %s", e.CreatedAt.UTC().Format(time.RFC3339))
		}
		b.WriteString("_\n\n")
		if e.Truncated {
			b.WriteString("> The transcript was truncated before summarizing.\n\n")
		}
		b.WriteString(strings.TrimSpace(e.Summary))
		b.WriteString("\n")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return []byte(b.String()), nil
}

// Filename is the suggested download name for an entry in format.
func Filename(e archive.Entry, format string) string {
	format = strings.ToLower(format)
	if format == "" {
		format = FormatText
	}
	name := "summary"
	if e.VideoID != "" {
		name += "-" + e.VideoID
	} else if len(e.ID) >= 8 {
		name += "-" + e.ID[:8]
	}
	return name + "." + format
}

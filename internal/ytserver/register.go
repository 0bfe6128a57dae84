// Package ytserver exposes the transcript and summary operations as MCP tools.
package ytserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/service"
	"github.com/anatolykoptev/go_ytsum/internal/toolutil"
)

// TranscriptInput is the youtube_transcript input.
type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts or live link)"`
	Language string `json:"language,omitempty" jsonschema:"Preferred caption language code, e.g. en or de (default: server setting)"`
}

// SummarizeInput is the youtube_summarize input.
type SummarizeInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts or live link)"`
	Language string `json:"language,omitempty" jsonschema:"Preferred caption language code (default: server setting)"`
}

// TextInput is the transcript_summarize input.
type TextInput struct {
	Text string `json:"text" jsonschema:"Transcript text to clean and summarize"`
}

// HistoryInput is the summary_history input.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries to return (default 20, max 200)"`
}

// EntryOutput is an archived summary as returned to MCP clients.
type EntryOutput struct {
	ID              string `json:"id"`
	VideoID         string `json:"video_id,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	Model           string `json:"model"`
	Summary         string `json:"summary"`
	Truncated       bool   `json:"truncated,omitempty"`
	TranscriptChars int    `json:"transcript_chars"`
	CreatedAt       string `json:"created_at"` // RFC 3339
}

func toEntryOutput(e archive.Entry) EntryOutput {
	return EntryOutput{
		ID:              e.ID,
		VideoID:         e.VideoID,
		SourceURL:       e.SourceURL,
		Model:           e.Model,
		Summary:         e.Summary,
		Truncated:       e.Truncated,
		TranscriptChars: e.TranscriptChars,
		CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HistoryOutput wraps the archived entries.
type HistoryOutput struct {
	Summaries []EntryOutput `json:"summaries"`
}

// GetInput is the summary_get input.
type GetInput struct {
	ID string `json:"id" jsonschema:"Archive id returned by youtube_summarize or summary_history"`
}

// RegisterTools registers all summary tools on the given MCP server:
// youtube_transcript, youtube_summarize, transcript_summarize, summary_history, summary_get.
func RegisterTools(server *mcp.Server, svc *service.Service) {
	registerTranscript(server, svc)
	registerSummarize(server, svc)
	registerTextSummarize(server, svc)
	registerHistory(server, svc)
	registerGet(server, svc)
}

func registerTranscript(server *mcp.Server, svc *service.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the captions of a YouTube video and return them as one cleaned block of text (markup, sound tags, timestamps and repeated phrases removed). Prefers manual captions over auto-generated ones in the requested language.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, service.TranscriptOutput, error) {
		if err := toolutil.RequireField("url", input.URL); err != nil {
			return nil, service.TranscriptOutput{}, err
		}
		out, err := svc.Transcript(ctx, input.URL, input.Language)
		if err != nil {
			return nil, service.TranscriptOutput{}, toolutil.ToolError(err)
		}
		return nil, out, nil
	})
}

func registerSummarize(server *mcp.Server, svc *service.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_summarize",
		Description: "Summarize a YouTube video from its transcript. Tries each configured model in order until one succeeds and reports which model produced the summary and which failed. Long transcripts are truncated before summarizing.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, service.SummaryOutput, error) {
		if err := toolutil.RequireField("url", input.URL); err != nil {
			return nil, service.SummaryOutput{}, err
		}
		out, err := svc.SummarizeURL(ctx, input.URL, input.Language)
		if err != nil {
			return nil, service.SummaryOutput{}, toolutil.ToolError(err)
		}
		return nil, out, nil
	})
}

func registerTextSummarize(server *mcp.Server, svc *service.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_summarize",
		Description: "Clean and summarize transcript text supplied directly, for videos without accessible captions.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, service.SummaryOutput, error) {
		if err := toolutil.RequireField("text", input.Text); err != nil {
			return nil, service.SummaryOutput{}, err
		}
		out, err := svc.SummarizeText(ctx, input.Text)
		if err != nil {
			return nil, service.SummaryOutput{}, toolutil.ToolError(err)
		}
		return nil, out, nil
	})
}

func registerHistory(server *mcp.Server, svc *service.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "summary_history",
		Description: "List previously produced summaries, newest first.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
		entries, err := svc.History(ctx, input.Limit)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		out := HistoryOutput{Summaries: make([]EntryOutput, 0, len(entries))}
		for _, e := range entries {
			out.Summaries = append(out.Summaries, toEntryOutput(e))
		}
		return nil, out, nil
	})
}

func registerGet(server *mcp.Server, svc *service.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "summary_get",
		Description: "Return one archived summary by id. Get ids from summary_history.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, EntryOutput, error) {
		if err := toolutil.RequireField("id", input.ID); err != nil {
			return nil, EntryOutput{}, err
		}
		e, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, EntryOutput{}, err
		}
		return nil, toEntryOutput(e), nil
	})
}

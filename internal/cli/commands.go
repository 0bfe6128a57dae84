package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_ytsum/internal/appconfig"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/httpapi"
	"github.com/anatolykoptev/go_ytsum/internal/service"
)

func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize a YouTube video from its captions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				out, err := svc.SummarizeURL(ctx, args[0], lang)
				if err != nil {
					return userError(err)
				}
				return writeSummary(cmd, out)
			})
		},
	}
	cmd.Flags().String("lang", "", "Caption language (default TRANSCRIPT_LANGUAGE)")
	addOutputFlags(cmd)
	return cmd
}

func newTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <url>",
		Short: "Print the cleaned transcript of a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			outPath, _ := cmd.Flags().GetString("out")

			ctx, stop := signalContext(cmd)
			defer stop()

			c := appconfig.Load()
			fetcher := appconfig.NewFetcher(c)
			raw, err := fetcher.FetchLanguage(ctx, args[0], lang)
			if err != nil {
				return userError(err)
			}
			text := engine.Clean(raw).Text
			slog.Info("transcript fetched", slog.String("video", raw.Video.ID),
				slog.String("lang", raw.Language), slog.String("kind", raw.Kind))
			if outPath != "" {
				return os.WriteFile(outPath, []byte(text+"\n"), 0o644)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().String("lang", "", "Caption language (default TRANSCRIPT_LANGUAGE)")
	cmd.Flags().String("out", "", "Write the transcript to this file")
	return cmd
}

func newTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text <file|->",
		Short: "Summarize transcript text from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				out, err := svc.SummarizeText(ctx, text)
				if err != nil {
					return userError(err)
				}
				return writeSummary(cmd, out)
			})
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived summaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				entries, err := svc.History(ctx, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, e := range entries {
					source := e.SourceURL
					if source == "" {
						source = "(pasted text)"
					}
					preview := engine.TruncateAtWord(strings.Join(strings.Fields(e.Summary), " "), 80)
					fmt.Fprintf(w, "%s  %s  %s  %s\n    %s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Model, source, preview)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum entries")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = env.Str("HTTP_ADDR", ":8080")
			}
			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				return httpapi.Serve(ctx, addr, svc)
			})
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default HTTP_ADDR or :8080)")
	return cmd
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", "", "Also write the summary to this file (.md for markdown)")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func withService(cmd *cobra.Command, fn func(context.Context, *service.Service) error) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	svc, cleanup, err := appconfig.Build(ctx, appconfig.Load())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer cleanup()
	return fn(ctx, svc)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func writeSummary(cmd *cobra.Command, out service.SummaryOutput) error {
	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		for _, f := range out.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "model %s failed: %s\n", f.Model, f.Reason)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "summary by %s\n", out.Model)
		fmt.Fprintln(w, out.Summary)
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		return nil
	}
	body, err := service.Render(out.Entry(), formatFor(outPath))
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, body, 0o644)
}

// formatFor picks the download format from a file extension.
func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return service.FormatMarkdown
	}
	return service.FormatText
}

func readInput(cmd *cobra.Command, arg string) (string, error) {
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New(engine.UserMessage(engine.ErrEmptyInput))
	}
	return string(data), nil
}

// userError keeps the actionable message on the terminal and the cause in debug logs.
func userError(err error) error {
	slog.Debug("command failed", slog.Any("error", err))
	return errors.New(engine.UserMessage(err))
}

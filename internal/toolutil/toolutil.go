// Package toolutil provides shared helpers for the go_ytsum MCP tools.
package toolutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// ToolError converts a pipeline error into the error returned to the MCP client.
// Known kinds carry the actionable message; the cause is kept for errors.Is.
func ToolError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, engine.ErrInvalidURL),
		errors.Is(err, engine.ErrNoTranscript),
		errors.Is(err, engine.ErrNetwork),
		errors.Is(err, engine.ErrEmptyInput),
		errors.Is(err, engine.ErrAllModelsExhausted):
		return fmt.Errorf("%s (%w)", engine.UserMessage(err), err)
	}
	return err
}

// RequireField returns an error naming field when value is blank.
func RequireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

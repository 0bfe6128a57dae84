package toolutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

func TestToolError(t *testing.T) {
	if ToolError(nil) != nil {
		t.Fatal("nil should stay nil")
	}

	err := ToolError(&engine.FetchError{Kind: engine.ErrNoTranscript, VideoID: "abc"})
	if !errors.Is(err, engine.ErrNoTranscript) {
		t.Errorf("kind lost: %v", err)
	}
	if !strings.HasPrefix(err.Error(), engine.UserMessage(engine.ErrNoTranscript)) {
		t.Errorf("missing user message: %q", err.Error())
	}

	plain := errors.New("boom")
	if got := ToolError(plain); got != plain {
		t.Errorf("unknown errors pass through, got %v", got)
	}
}

func TestRequireField(t *testing.T) {
	if err := RequireField("url", "  "); err == nil || err.Error() != "url is required" {
		t.Errorf("got %v", err)
	}
	if err := RequireField("url", "x"); err != nil {
		t.Errorf("unexpected %v", err)
	}
}

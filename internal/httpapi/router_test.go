package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

// fetcher maps video ids to outcomes.
type fetcher map[string]error

func (f fetcher) FetchLanguage(_ context.Context, url, lang string) (engine.RawTranscript, error) {
	ref, err := engine.ResolveVideo(url)
	if err != nil {
		return engine.RawTranscript{}, &engine.FetchError{Kind: engine.ErrInvalidURL}
	}
	if err := f[ref.ID]; err != nil {
		return engine.RawTranscript{}, err
	}
	return engine.RawTranscript{Video: ref, Language: lang, Kind: engine.KindManual,
		Fragments: []engine.Fragment{{Text: "gophers build services"}}}, nil
}

type completer struct{ fail bool }

func (c completer) Complete(context.Context, string, string) (string, error) {
	if c.fail {
		return "", errors.New("HTTP 500")
	}
	return "a summary", nil
}

const (
	okID      = "aaaaaaaaaaa"
	noCapsID  = "bbbbbbbbbbb"
	offlineID = "ccccccccccc"
)

func newTestRouter(t *testing.T, failLLM bool, withArchive bool) *gin.Engine {
	t.Helper()
	engine.InitCache("", time.Minute, 100, time.Minute)
	t.Cleanup(engine.CloseCache)

	sum, err := engine.NewSummarizer(engine.SummarizerConfig{Models: []string{"m1", "m2"}, MaxInputChars: 1000},
		func(string) engine.Completer { return completer{fail: failLLM} })
	require.NoError(t, err)

	var store archive.Store
	if withArchive {
		store, err = archive.Open(context.Background(), filepath.Join(t.TempDir(), "a.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
	}
	f := fetcher{
		noCapsID:  &engine.FetchError{Kind: engine.ErrNoTranscript, VideoID: noCapsID},
		offlineID: &engine.FetchError{Kind: engine.ErrNetwork, VideoID: offlineID},
	}
	return NewRouter(service.New(f, sum, store, "en"))
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func watch(id string) string {
	return fmt.Sprintf(`{"url":"https://www.youtube.com/watch?v=%s"}`, id)
}

func TestStatusMapping(t *testing.T) {
	r := newTestRouter(t, false, true)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"ok", "/v1/summaries", watch(okID), http.StatusOK},
		{"invalid url", "/v1/summaries", `{"url":"https://example.com/x"}`, http.StatusBadRequest},
		{"missing url", "/v1/summaries", `{}`, http.StatusBadRequest},
		{"no captions", "/v1/summaries", watch(noCapsID), http.StatusNotFound},
		{"network", "/v1/transcripts", watch(offlineID), http.StatusBadGateway},
		{"transcript ok", "/v1/transcripts", watch(okID), http.StatusOK},
		{"empty text", "/v1/summaries/text", `{"text":"[Music]"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAllModelsFailed(t *testing.T) {
	r := newTestRouter(t, true, false)
	w := do(r, http.MethodPost, "/v1/summaries", watch(okID))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, engine.UserMessage(engine.ErrAllModelsExhausted), body["error"])
	assert.Contains(t, body["detail"], "m1")
}

func TestSummaryLifecycle(t *testing.T) {
	r := newTestRouter(t, false, true)

	w := do(r, http.MethodPost, "/v1/summaries", watch(okID))
	require.Equal(t, http.StatusOK, w.Code)
	var out service.SummaryOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.ID)
	assert.Equal(t, "a summary", out.Summary)
	assert.Equal(t, "m1", out.Model)

	w = do(r, http.MethodGet, "/v1/summaries?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Summaries []archive.Entry `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Summaries, 1)
	assert.Equal(t, out.ID, list.Summaries[0].ID)

	w = do(r, http.MethodGet, "/v1/summaries/"+out.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/v1/summaries/"+out.ID+"/download?format=md", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="summary-`+okID+`.md"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, w.Body.String(), "a summary")

	w = do(r, http.MethodGet, "/v1/summaries/"+out.ID+"/download", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	w = do(r, http.MethodGet, "/v1/summaries/"+out.ID+"/download?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/v1/summaries/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/v1/summaries?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchiveDisabled(t *testing.T) {
	r := newTestRouter(t, false, false)
	w := do(r, http.MethodGet, "/v1/summaries", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, false, false)

	w := do(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"m1"`)

	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cache_hits")
}

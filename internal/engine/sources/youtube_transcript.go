package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// tracksViaWatchPage scrapes the watch page and reads captionTracks from ytInitialPlayerResponse.
func (f *Fetcher) tracksViaWatchPage(ctx context.Context, videoID string) ([]captionTrack, error) {
	engine.IncrWatchPage()
	body, err := f.getPage(ctx, f.cfg.BaseURL+"/watch?v="+videoID+"&hl=en")
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	jsonData, err := findPlayerResponse(body)
	if err != nil {
		return nil, err
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return playerTracks(playerResp)
}

// findPlayerResponse locates the inline script that assigns ytInitialPlayerResponse.
func findPlayerResponse(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}
	var found []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, ytInitialPlayerResponseMarker)
		if idx < 0 {
			return true
		}
		found = extractJSON([]byte(text[idx+len(ytInitialPlayerResponseMarker):]))
		return found == nil
	})
	if found == nil {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	return found, nil
}

// tracksViaPlayer uses the ANDROID Innertube /player endpoint.
func (f *Fetcher) tracksViaPlayer(ctx context.Context, videoID string) ([]captionTrack, error) {
	engine.IncrPlayer()
	data, err := f.postInnertube(ctx, ytPlayerPath, innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}, map[string]string{
		"User-Agent":               ytAndroidUA,
		"X-Youtube-Client-Name":    "3",
		"X-Youtube-Client-Version": ytAndroidVersion,
	})
	if err != nil {
		return nil, err
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(data, &playerResp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return playerTracks(playerResp)
}

// playerTracks returns caption tracks, or a *noCaptionsError when the response
// definitively says there are none.
func playerTracks(resp innertubePlayerResp) ([]captionTrack, error) {
	ps := resp.PlayabilityStatus
	if ps != nil && isUnavailable(ps) {
		return nil, &noCaptionsError{reason: "video unavailable: " + orDefault(ps.Reason, ps.Status)}
	}
	if resp.Captions == nil || len(resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		if ps == nil || ps.Status == "OK" {
			return nil, &noCaptionsError{reason: "captions disabled"}
		}
		// LOGIN_REQUIRED bot checks hide captions without answering.
		return nil, fmt.Errorf("captions hidden: %s %s", ps.Status, ps.Reason)
	}
	return resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

func isUnavailable(ps *playabilityStatus) bool {
	switch ps.Status {
	case "ERROR", "UNPLAYABLE":
		return true
	case "LOGIN_REQUIRED":
		return strings.Contains(strings.ToLower(ps.Reason), "private")
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for lang.
// Order: manual in lang, auto in lang, manual then auto sharing the base tag, first usable.
func pickBestTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}

	base := engine.BaseLang(lang)
	matchers := []func(captionTrack) bool{
		func(t captionTrack) bool { return strings.EqualFold(t.LanguageCode, lang) && t.Kind != "asr" },
		func(t captionTrack) bool { return strings.EqualFold(t.LanguageCode, lang) },
		func(t captionTrack) bool { return engine.BaseLang(t.LanguageCode) == base && t.Kind != "asr" },
		func(t captionTrack) bool { return engine.BaseLang(t.LanguageCode) == base },
	}
	for _, match := range matchers {
		for _, t := range usable {
			if match(t) {
				return t, true
			}
		}
	}
	return usable[0], true
}

// --- Timedtext XML ---

// ytTimedText covers both the legacy <transcript><text start dur> shape
// and format 3 <timedtext><body><p t d>.
type ytTimedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
	Body struct {
		Paras []struct {
			T     int64  `xml:"t,attr"`
			D     int64  `xml:"d,attr"`
			Text  string `xml:",chardata"`
			Spans []struct {
				Text string `xml:",chardata"`
			} `xml:"s"`
		} `xml:"p"`
	} `xml:"body"`
}

// fetchTimedText downloads a caption track and parses it into fragments.
func (f *Fetcher) fetchTimedText(ctx context.Context, trackURL string) ([]engine.Fragment, error) {
	engine.IncrTimedText()
	u, err := f.timedTextURL(trackURL)
	if err != nil {
		return nil, err
	}
	body, err := f.send(ctx, maxTimedTextBytes, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &noCaptionsError{reason: "empty caption track"}
	}

	frags, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, &noCaptionsError{reason: "caption track has no fragments"}
	}
	return frags, nil
}

// timedTextURL resolves relative track URLs and drops fmt so the default XML is served.
func (f *Fetcher) timedTextURL(raw string) (string, error) {
	if strings.HasPrefix(raw, "/") {
		raw = f.cfg.BaseURL + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("caption track url: %w", err)
	}
	q := u.Query()
	if q.Has("fmt") {
		q.Del("fmt")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func parseTimedText(body []byte) ([]engine.Fragment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var frags []engine.Fragment
	for _, line := range tt.Texts {
		text := decodeCaption(line.Text)
		if text == "" {
			continue
		}
		frags = append(frags, engine.Fragment{
			Text:     text,
			Start:    parseSeconds(line.Start),
			Duration: parseSeconds(line.Dur),
		})
	}
	for _, p := range tt.Body.Paras {
		raw := p.Text
		if len(p.Spans) > 0 {
			parts := make([]string, 0, len(p.Spans))
			for _, s := range p.Spans {
				parts = append(parts, s.Text)
			}
			raw = strings.Join(parts, "")
		}
		text := decodeCaption(raw)
		if text == "" {
			continue
		}
		frags = append(frags, engine.Fragment{
			Text:     text,
			Start:    time.Duration(p.T) * time.Millisecond,
			Duration: time.Duration(p.D) * time.Millisecond,
		})
	}
	return frags, nil
}

// decodeCaption undoes the second layer of entity escaping YouTube applies
// (&amp;#39; arrives as &#39; after XML decoding) and normalizes whitespace.
func decodeCaption(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// --- Engagement panel (/next → /get_transcript) ---

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	// A missing panel is also what bot checks and consent walls serve,
	// so it says nothing about whether captions exist.
	return "", errors.New("no transcript panel in /next response")
}

// parseTranscriptSegments converts /get_transcript segments into fragments.
func parseTranscriptSegments(resp ytGetTranscriptResp) []engine.Fragment {
	var frags []engine.Fragment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := decodeCaption(sb.String())
			if text == "" {
				continue
			}
			start, _ := strconv.ParseInt(r.StartMs, 10, 64)
			end, _ := strconv.ParseInt(r.EndMs, 10, 64)
			frags = append(frags, engine.Fragment{
				Text:     text,
				Start:    time.Duration(start) * time.Millisecond,
				Duration: time.Duration(max(end-start, 0)) * time.Millisecond,
			})
		}
	}
	return frags
}

// panelKind reports the caption kind of the language selected in the panel
// footer, or "" when the response carries no selection.
func panelKind(resp ytGetTranscriptResp) string {
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		items := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Footer.
			TranscriptFooterRenderer.LanguageMenu.
			SortFilterSubMenuRenderer.SubMenuItems
		for _, it := range items {
			if !it.Selected || it.Title == "" {
				continue
			}
			if strings.Contains(strings.ToLower(it.Title), "auto-generated") {
				return engine.KindASR
			}
			return engine.KindManual
		}
	}
	return ""
}

// fetchViaEngagementPanel fetches a transcript via:
//  1. POST /next → engagementPanels containing the transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
//
// Used last: it needs no caption track URL but is the most fragile.
// The panel names no language code, so Language is left empty.
func (f *Fetcher) fetchViaEngagementPanel(ctx context.Context, videoID, lang string) (engine.RawTranscript, error) {
	visitorData := generateVisitorData()
	hl := engine.BaseLang(lang)
	headers := map[string]string{
		"Accept":                   "*/*",
		"User-Agent":               engine.UserAgentChrome,
		"X-Youtube-Client-Name":    "1",
		"X-Youtube-Client-Version": ytWebVersion,
		"X-Goog-Visitor-Id":        visitorData,
		"Origin":                   f.cfg.BaseURL,
		"Referer":                  f.cfg.BaseURL + "/",
	}

	nextData, err := f.postInnertube(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData, hl),
	}, headers)
	if err != nil {
		return engine.RawTranscript{}, err
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return engine.RawTranscript{}, err
	}

	transcriptData, err := f.postInnertube(ctx, ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": ytWebContext(visitorData, hl),
	}, headers)
	if err != nil {
		return engine.RawTranscript{}, err
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return engine.RawTranscript{}, fmt.Errorf("decode transcript: %w", err)
	}

	frags := parseTranscriptSegments(transcriptResp)
	if len(frags) == 0 {
		return engine.RawTranscript{}, &noCaptionsError{reason: "empty transcript segments"}
	}
	return engine.RawTranscript{Kind: panelKind(transcriptResp), Fragments: frags}, nil
}

// extractJSON returns the leading balanced JSON object of b, or nil.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

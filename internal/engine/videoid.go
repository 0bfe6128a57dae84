package engine

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// pathPrefixes are YouTube path shapes that carry the id as the next segment.
var pathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/"}

// ResolveVideo extracts the video id from a watch, short-link, embed, shorts or live URL.
// Returns ErrInvalidURL when no 11-character id can be found.
func ResolveVideo(raw string) (VideoReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return VideoReference{}, ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return VideoReference{}, ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	id := ""
	switch {
	case host == "youtu.be":
		id = firstSegment(strings.TrimPrefix(u.Path, "/"))
	case isYouTubeHost(host):
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, p := range pathPrefixes {
			if strings.HasPrefix(u.Path, p) {
				id = firstSegment(strings.TrimPrefix(u.Path, p))
				break
			}
		}
	}

	if !videoIDRe.MatchString(id) {
		return VideoReference{}, ErrInvalidURL
	}
	return VideoReference{ID: id, URL: "https://www.youtube.com/watch?v=" + id}, nil
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com", "www.youtube-nocookie.com":
		return true
	}
	return false
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

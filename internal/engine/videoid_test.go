package engine

import (
	"errors"
	"testing"
)

func TestResolveVideo(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch extra params", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"music", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/abcdefghijk", "abcdefghijk"},
		{"live", "https://www.youtube.com/live/abc_def-123", "abc_def-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ResolveVideo(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.ID != tt.want {
				t.Errorf("ID = %q, want %q", ref.ID, tt.want)
			}
			if ref.URL != "https://www.youtube.com/watch?v="+tt.want {
				t.Errorf("URL = %q", ref.URL)
			}
		})
	}
}

func TestResolveVideoInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"not a url",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=short",
		"https://www.youtube.com/watch",
		"https://youtu.be/",
		"https://www.youtube.com/channel/UC123",
		"https://vimeo.com/12345678901",
	} {
		t.Run(in, func(t *testing.T) {
			if _, err := ResolveVideo(in); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ResolveVideo(%q) err = %v, want ErrInvalidURL", in, err)
			}
		})
	}
}

package services

import (
	"errors"
	"testing"

	"coursegen-backend/internal/models"
)

func TestResolveSourceURL_VideoForms(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"standard watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch with extra params", "https://www.youtube.com/watch?t=42&v=dQw4w9WgXcQ&feature=share", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with params", "https://youtu.be/dQw4w9WgXcQ?si=abc123", "dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := ResolveSourceURL(tc.url)
			if err != nil {
				t.Fatalf("ResolveSourceURL(%q) returned error: %v", tc.url, err)
			}
			if src.Kind != models.SourceVideo {
				t.Errorf("Expected video kind, got %q", src.Kind)
			}
			if src.ID != tc.want {
				t.Errorf("Expected id %q, got %q", tc.want, src.ID)
			}
		})
	}
}

func TestResolveSourceURL_PlaylistForms(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"playlist page", "https://www.youtube.com/playlist?list=PLabc123456789", "PLabc123456789"},
		{"watch with list param", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc123456789", "PLabc123456789"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := ResolveSourceURL(tc.url)
			if err != nil {
				t.Fatalf("ResolveSourceURL(%q) returned error: %v", tc.url, err)
			}
			if src.Kind != models.SourcePlaylist {
				t.Errorf("Expected playlist kind, got %q", src.Kind)
			}
			if src.ID != tc.want {
				t.Errorf("Expected id %q, got %q", tc.want, src.ID)
			}
		})
	}
}

func TestResolveSourceURL_PlaylistWinsOverVideo(t *testing.T) {
	// A watch URL carrying a list param resolves as the playlist, not the video.
	src, err := ResolveSourceURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Kind != models.SourcePlaylist {
		t.Fatalf("Expected playlist kind, got %q", src.Kind)
	}
}

func TestResolveSourceURL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"not a url", "hello world"},
		{"wrong host", "https://vimeo.com/12345678"},
		{"too short id", "abc"},
		{"watch without v", "https://www.youtube.com/watch?t=42"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveSourceURL(tc.url)
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Expected ErrInvalidURL for %q, got %v", tc.url, err)
			}
		})
	}
}

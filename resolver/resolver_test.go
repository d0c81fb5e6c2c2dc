package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"orpheus/config"
)

// stubYTDLP writes a shell script that ignores its arguments and behaves
// like yt-dlp, so Resolve can be exercised without the real binary.
func stubYTDLP(t *testing.T, body string) *Resolver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return New(&config.Config{
		Resolver: config.ResolverConfig{YTDLPPath: path, Timeout: 5 * time.Second},
	})
}

func TestResolveSingleVideo(t *testing.T) {
	r := stubYTDLP(t, `cat <<'EOF'
{
  "title": "Test Song",
  "url": "https://cdn.example.com/audio.m4a",
  "webpage_url": "https://www.youtube.com/watch?v=abc123&list=PLxyz",
  "thumbnail": "https://img.example.com/t.jpg",
  "duration": 215.3,
  "is_live": false
}
EOF`)

	track, err := r.Resolve(context.Background(), "test song", "@someone", 42)
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if track.Title != "Test Song" {
		t.Errorf("Title = %q, expected %q", track.Title, "Test Song")
	}
	if track.StreamURL != "https://cdn.example.com/audio.m4a" {
		t.Errorf("StreamURL = %q", track.StreamURL)
	}
	if track.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("URL = %q, expected the cleaned watch URL", track.URL)
	}
	if track.Duration != 215 {
		t.Errorf("Duration = %d, expected 215", track.Duration)
	}
	if track.RequestedBy != "@someone" {
		t.Errorf("RequestedBy = %q", track.RequestedBy)
	}
	if track.ChannelID != 42 {
		t.Errorf("ChannelID = %s, expected 42", track.ChannelID)
	}
}

func TestResolveSearchResult(t *testing.T) {
	r := stubYTDLP(t, `cat <<'EOF'
{
  "title": "test query",
  "entries": [
    null,
    {
      "title": "First Hit",
      "url": "https://cdn.example.com/hit.m4a",
      "webpage_url": "https://www.youtube.com/watch?v=hit",
      "duration": 90
    }
  ]
}
EOF`)

	track, err := r.Resolve(context.Background(), "some search", "@someone", 1)
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if track.Title != "First Hit" {
		t.Errorf("Title = %q, expected the first non-null entry", track.Title)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected ErrorKind
	}{
		{
			name:     "live stream rejected",
			body:     `echo '{"title": "24/7 radio", "url": "https://cdn.example.com/live", "is_live": true}'`,
			expected: KindLiveStream,
		},
		{
			name:     "empty search",
			body:     `echo '{"title": "", "entries": []}'`,
			expected: KindNoResults,
		},
		{
			name:     "extractor exits non-zero",
			body:     `echo "ERROR: unsupported" >&2; exit 1`,
			expected: KindExtractFailed,
		},
		{
			name:     "garbage output",
			body:     `echo 'not json'`,
			expected: KindExtractFailed,
		},
		{
			name:     "no stream url",
			body:     `echo '{"title": "broken", "webpage_url": "https://example.com"}'`,
			expected: KindExtractFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := stubYTDLP(t, tt.body)
			_, err := r.Resolve(context.Background(), "whatever", "@someone", 1)
			var resolveErr *ResolveError
			if !errors.As(err, &resolveErr) {
				t.Fatalf("Resolve() error = %v, expected a *ResolveError", err)
			}
			if resolveErr.Kind != tt.expected {
				t.Errorf("Kind = %v, expected %v", resolveErr.Kind, tt.expected)
			}
		})
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	r := stubYTDLP(t, `echo '{}'`)
	_, err := r.Resolve(context.Background(), "   ", "@someone", 1)
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Kind != KindNoResults {
		t.Fatalf("Resolve() error = %v, expected KindNoResults", err)
	}
}

func TestCleanWatchURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips playlist parameter",
			input:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=4",
			expected: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:     "plain watch url unchanged",
			input:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:     "non-youtube url untouched",
			input:    "https://soundcloud.com/artist/track?in=playlist",
			expected: "https://soundcloud.com/artist/track?in=playlist",
		},
		{
			name:     "watch url without video id untouched",
			input:    "https://www.youtube.com/watch?list=PL123",
			expected: "https://www.youtube.com/watch?list=PL123",
		},
		{
			name:     "search terms untouched",
			input:    "never gonna give you up",
			expected: "never gonna give you up",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanWatchURL(tt.input); got != tt.expected {
				t.Errorf("CleanWatchURL(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

// Package resolver turns user queries into playable tracks by shelling out
// to yt-dlp. Search terms and direct URLs are both accepted.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"orpheus/config"
	"orpheus/player"

	"github.com/disgoorg/snowflake/v2"
)

// ErrorKind classifies why a query produced no playable track.
type ErrorKind int

const (
	// KindExtractFailed means yt-dlp ran but extraction broke down.
	KindExtractFailed ErrorKind = iota
	// KindNoResults means the query matched nothing.
	KindNoResults
	// KindLiveStream means the query resolved to a live broadcast, which
	// the player does not stream.
	KindLiveStream
)

// ResolveError explains a failed resolution.
type ResolveError struct {
	Kind  ErrorKind
	Query string
	Err   error
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case KindNoResults:
		return fmt.Sprintf("no results for %q", e.Query)
	case KindLiveStream:
		return fmt.Sprintf("%q is a live stream", e.Query)
	default:
		if e.Err != nil {
			return fmt.Sprintf("resolving %q: %v", e.Query, e.Err)
		}
		return fmt.Sprintf("resolving %q failed", e.Query)
	}
}

func (e *ResolveError) Unwrap() error { return e.Err }

// extractArgs are the yt-dlp options used for every query: dump metadata as
// JSON, best available audio, single videos only, search when the query is
// not a URL.
var extractArgs = []string{
	"--ignore-config",
	"--dump-single-json",
	"--format", "bestaudio/best",
	"--no-playlist",
	"--no-check-certificates",
	"--no-warnings",
	"--quiet",
	"--default-search", "auto",
	"--source-address", "0.0.0.0",
	"--socket-timeout", "10",
	"--restrict-filenames",
}

// Resolver resolves queries through an external yt-dlp binary.
type Resolver struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a resolver using the configured yt-dlp executable.
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		path:    cfg.Resolver.YTDLPPath,
		timeout: cfg.Resolver.Timeout,
		logger:  slog.With(slog.String("component", "resolver")),
	}
}

// document mirrors the yt-dlp JSON fields the bot cares about. Search
// queries come back as a playlist document with entries.
type document struct {
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Thumbnail  string      `json:"thumbnail"`
	Duration   float64     `json:"duration"`
	IsLive     bool        `json:"is_live"`
	Entries    []*document `json:"entries"`
}

// Resolve runs yt-dlp for query and maps its output to a track. requestedBy
// and channelID are stamped onto the track for announcements. Resolution is
// slow; call it from command handlers, never from a room loop.
func (r *Resolver) Resolve(ctx context.Context, query, requestedBy string, channelID snowflake.ID) (*player.Track, error) {
	query = CleanWatchURL(strings.TrimSpace(query))
	if query == "" {
		return nil, &ResolveError{Kind: KindNoResults, Query: query}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := make([]string, 0, len(extractArgs)+1)
	args = append(args, extractArgs...)
	args = append(args, query)

	start := time.Now()
	out, err := exec.CommandContext(runCtx, r.path, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Debug("yt-dlp exited with error",
				slog.String("query", query),
				slog.String("stderr", strings.TrimSpace(string(exitErr.Stderr))))
		}
		return nil, &ResolveError{Kind: KindExtractFailed, Query: query, Err: err}
	}

	var doc document
	if err = json.Unmarshal(out, &doc); err != nil {
		return nil, &ResolveError{Kind: KindExtractFailed, Query: query, Err: err}
	}

	data := firstEntry(&doc)
	if data == nil {
		return nil, &ResolveError{Kind: KindNoResults, Query: query}
	}
	if data.IsLive {
		return nil, &ResolveError{Kind: KindLiveStream, Query: query}
	}
	if data.URL == "" {
		return nil, &ResolveError{Kind: KindExtractFailed, Query: query}
	}

	r.logger.Debug("Resolved query",
		slog.String("query", query),
		slog.String("title", data.Title),
		slog.Duration("took", time.Since(start)))

	return &player.Track{
		Title:       data.Title,
		URL:         CleanWatchURL(data.WebpageURL),
		StreamURL:   data.URL,
		Thumbnail:   data.Thumbnail,
		Duration:    int(data.Duration),
		RequestedBy: requestedBy,
		ChannelID:   channelID,
	}, nil
}

// firstEntry unwraps search results to the first hit, or returns the
// document itself for direct URLs.
func firstEntry(doc *document) *document {
	if len(doc.Entries) == 0 {
		if doc.Title == "" && doc.URL == "" {
			return nil
		}
		return doc
	}
	for _, entry := range doc.Entries {
		if entry != nil {
			return entry
		}
	}
	return nil
}

// CleanWatchURL strips playlist and tracking parameters from YouTube watch
// URLs so queue entries link to just the one video.
func CleanWatchURL(raw string) string {
	if !strings.Contains(raw, "youtube.com/watch") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	v := u.Query().Get("v")
	if v == "" {
		return raw
	}
	return "https://www.youtube.com/watch?v=" + v
}

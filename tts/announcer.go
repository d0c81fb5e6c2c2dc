// Package tts synthesizes short spoken announcements and serves them as PCM
// frame providers the voice sink can splice in front of a track.
package tts

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"orpheus/assets"
	"orpheus/config"

	"github.com/Duckduckgot/gtts"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Announcer turns track titles into spoken "Now playing" clips. Synthesized
// files are cached on disk under the configured folder and reused, keyed by
// their sanitized name.
type Announcer struct {
	mu     sync.Mutex
	speech gtts.Speech
	logger *slog.Logger
}

// New creates an announcer caching synthesized clips under the configured
// directory.
func New(cfg *config.Config) (*Announcer, error) {
	if err := os.MkdirAll(cfg.TTS.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create speech cache dir: %w", err)
	}
	return &Announcer{
		speech: gtts.Speech{Folder: cfg.TTS.CacheDir, Language: cfg.TTS.Language},
		logger: slog.With(slog.String("component", "tts")),
	}, nil
}

// TrackIntro returns a provider voicing "Now playing <title>". When
// synthesis is unavailable it falls back to the embedded generic clip, and
// reports an error only when there is nothing to play at all.
func (a *Announcer) TrackIntro(title string) (*StreamProvider, error) {
	text := "Now playing. " + title
	name, err := SanitizeName(text)
	if err != nil {
		return a.fallback()
	}

	a.mu.Lock()
	path, err := a.speech.CreateSpeechFile(text, name)
	a.mu.Unlock()
	if err != nil {
		a.logger.Debug("Speech synthesis failed, using embedded clip",
			slog.String("title", title),
			slog.Any("error", err))
		return a.fallback()
	}

	file, err := os.Open(path)
	if err != nil {
		return a.fallback()
	}
	streamer, format, err := mp3.Decode(file)
	if err != nil {
		_ = file.Close()
		return a.fallback()
	}
	return newResampledProvider(streamer, streamer, format.SampleRate), nil
}

// fallback serves the embedded generic announcement.
func (a *Announcer) fallback() (*StreamProvider, error) {
	clip, ok := assets.Get(assets.NowPlayingClip)
	if !ok {
		return nil, fmt.Errorf("no announcement clip available")
	}
	streamer := clip.Buffer.Streamer(0, clip.Buffer.Len())
	return newResampledProvider(streamer, nil, clip.Format.SampleRate), nil
}

// SanitizeName folds text into a safe lowercase ASCII filename: diacritics
// stripped, punctuation dropped, spaces turned into underscores.
func SanitizeName(str string) (string, error) {
	// Decompose and remove diacritics (accents)
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)), // Remove non-spacing marks
	)
	normalized, _, err := transform.String(t, str)
	if err != nil {
		return "", err
	}

	// Remove non-ASCII and non-alphanumeric characters
	filtered := strings.Map(func(r rune) rune {
		if r > 127 {
			return -1 // remove non-ASCII
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1 // remove symbols/punctuation
	}, normalized)

	lowercased := strings.ToLower(filtered)

	// Trim leading/trailing spaces and replace spaces with underscores
	filtered = strings.TrimSpace(lowercased)
	filtered = strings.ReplaceAll(filtered, " ", "_")

	if filtered == "" {
		return "", fmt.Errorf("resulting filename is empty after processing")
	}

	return filtered, nil
}

// newResampledProvider wraps streamer as a provider, resampling when the
// source rate differs from the voice rate.
func newResampledProvider(streamer beep.Streamer, closer interface{ Close() error }, rate beep.SampleRate) *StreamProvider {
	if rate != SampleRate {
		streamer = beep.Resample(4, rate, SampleRate, streamer)
	}
	return NewStreamProvider(streamer, closer)
}

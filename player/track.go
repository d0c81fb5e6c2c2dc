package player

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

// Track is a fully resolved piece of media, ready to stream. Producers build
// it once and never mutate it afterwards, so it is safe to hand between
// goroutines by pointer.
type Track struct {
	// Title is the human readable name of the media.
	Title string

	// URL is the canonical page the media came from.
	URL string

	// StreamURL is the direct audio stream handed to ffmpeg.
	StreamURL string

	// Thumbnail is an optional cover image URL.
	Thumbnail string

	// Duration is the track length in seconds, 0 when unknown.
	Duration int

	// RequestedBy identifies the user who queued the track.
	RequestedBy string

	// ChannelID is the text channel announcements for this track go to.
	ChannelID snowflake.ID
}

// FormatDuration renders the length as HH:MM:SS, dropping the hour part for
// tracks under an hour.
func (t *Track) FormatDuration() string {
	m, s := t.Duration/60, t.Duration%60
	h := m / 60
	m %= 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

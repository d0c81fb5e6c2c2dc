package player

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// State is the lifecycle phase of a room's scheduler.
type State int

const (
	// StateIdle means the loop is waiting for the next track.
	StateIdle State = iota
	// StatePlaying means a track is streaming into the sink.
	StatePlaying
	// StatePaused means a track is loaded but its output is gated off.
	StatePaused
	// StateDraining means a stop was requested and the loop is unwinding.
	StateDraining
	// StateTerminated means the loop has exited and the sink is released.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Sink streams tracks into a room's audio session, one at a time.
//
// Play starts streaming t and returns once the stream is rolling; onComplete
// fires exactly once later, when the track ends on its own, is stopped or
// fails mid stream. A nil completion error covers both a clean finish and a
// deliberate stop. Stop ends the current track only and may be called any
// number of times, including when nothing is playing. Pause and Resume gate
// the output without ending the track. Close releases the underlying
// session; the owning scheduler calls it exactly once, after which the sink
// is never used again.
type Sink interface {
	Play(ctx context.Context, t *Track, onComplete func(error)) error
	Stop()
	Pause()
	Resume()
	IsActive() bool
	Close()
}

// SinkFactory opens the audio session for a room. The registry invokes it
// once per scheduler, inside its construction critical section, so a failed
// open leaves no half-registered room behind.
type SinkFactory func(ctx context.Context, guildID snowflake.ID) (Sink, error)

// Notifier announces playback events to humans. Implementations handle
// their own delivery failures; schedulers never see them.
type Notifier interface {
	NowPlaying(t *Track)
}

package player

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Scheduler drives playback for a single room. It owns the room's queue and
// sink: a dedicated goroutine pops one track at a time, hands it to the sink
// and parks until the sink reports completion. All lifecycle transitions
// happen on that goroutine; control calls only flip flags and poke the sink.
type Scheduler struct {
	guildID  snowflake.ID
	queue    *Queue
	sink     Sink
	notifier Notifier
	idle     time.Duration
	ctx      context.Context
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	current  *Track
	stopping bool

	// onExit deregisters the scheduler from its registry after teardown.
	onExit func()
	done   chan struct{}
}

func newScheduler(ctx context.Context, guildID snowflake.ID, sink Sink, notifier Notifier, idle time.Duration) *Scheduler {
	return &Scheduler{
		guildID:  guildID,
		queue:    NewQueue(),
		sink:     sink,
		notifier: notifier,
		idle:     idle,
		ctx:      ctx,
		logger: slog.With(
			slog.String("component", "scheduler"),
			slog.String("guild_id", guildID.String()),
		),
		done: make(chan struct{}),
	}
}

// run is the room loop. It exits when the queue closes, which happens on an
// explicit stop or when an idle wait expires with nothing queued.
func (s *Scheduler) run() {
	defer s.finish()

	for {
		track, err := s.queue.PopWait(s.idle)
		switch {
		case errors.Is(err, ErrQueueClosed):
			return
		case errors.Is(err, ErrPopTimeout):
			if s.queue.CloseIfEmpty() {
				s.logger.Info("Idle timeout reached, shutting room down")
				return
			}
			continue
		case err != nil:
			s.logger.Error("Queue wait failed", slog.Any("error", err))
			return
		}

		if !s.beginTrack(track) {
			return
		}
		s.notifier.NowPlaying(track)

		complete := make(chan error, 1)
		if err = s.sink.Play(s.ctx, track, func(playErr error) {
			complete <- playErr
		}); err != nil {
			s.logger.Error("Failed to start playback",
				slog.String("title", track.Title),
				slog.Any("error", err))
			s.endTrack()
			continue
		}

		// A stop issued between the pop and Play missed the live stream;
		// repeating it is safe and ends the track we just started.
		if s.isStopping() {
			s.sink.Stop()
		}

		if playErr := <-complete; playErr != nil {
			s.logger.Error("Playback ended with error",
				slog.String("title", track.Title),
				slog.Any("error", playErr))
		}
		s.endTrack()
	}
}

// finish tears the room down: terminal state, queue closed and drained,
// sink released exactly once, registry entry detached.
func (s *Scheduler) finish() {
	s.queue.Close()
	dropped := s.queue.SnapshotAndClear()

	s.mu.Lock()
	s.state = StateTerminated
	s.current = nil
	s.mu.Unlock()

	s.sink.Close()

	if len(dropped) > 0 {
		s.logger.Info("Released queued tracks", slog.Int("count", len(dropped)))
	}
	if s.onExit != nil {
		s.onExit()
	}
	close(s.done)
	s.logger.Info("Room terminated")
}

func (s *Scheduler) beginTrack(t *Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.current = t
	s.state = StatePlaying
	return true
}

func (s *Scheduler) endTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if s.state == StatePlaying || s.state == StatePaused {
		s.state = StateIdle
	}
}

func (s *Scheduler) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// Enqueue appends a track to the room's queue. ErrQueueClosed means this
// scheduler is shutting down and the caller should get a fresh one from the
// registry.
func (s *Scheduler) Enqueue(t *Track) error {
	return s.queue.Push(t)
}

// Skip ends the current track so the loop advances to the next one. It
// reports whether there was a track to skip.
func (s *Scheduler) Skip() bool {
	s.mu.Lock()
	active := s.state == StatePlaying || s.state == StatePaused
	s.mu.Unlock()
	if !active {
		return false
	}
	s.sink.Stop()
	return true
}

// Stop ends the current track, drops everything queued and terminates the
// room. Stopping an already stopping or terminated scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopping || s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	if s.state == StatePlaying || s.state == StatePaused {
		s.state = StateDraining
	}
	s.mu.Unlock()

	dropped := s.queue.SnapshotAndClear()
	if len(dropped) > 0 {
		s.logger.Debug("Dropped queued tracks on stop", slog.Int("count", len(dropped)))
	}
	s.queue.Close()
	s.sink.Stop()
}

// Pause gates the current track's output off. It reports whether playback
// was running.
func (s *Scheduler) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return false
	}
	s.state = StatePaused
	s.sink.Pause()
	return true
}

// Resume reopens a paused track's output. It reports whether playback was
// paused.
func (s *Scheduler) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return false
	}
	s.state = StatePlaying
	s.sink.Resume()
	return true
}

// Shuffle randomly reorders the queued tracks and returns how many there
// are. The current track is not affected.
func (s *Scheduler) Shuffle() (int, error) {
	_, after, err := s.queue.Transform(func(items []*Track) []*Track {
		rand.Shuffle(len(items), func(i, j int) {
			items[i], items[j] = items[j], items[i]
		})
		return items
	})
	return after, err
}

// ClearQueue drops every queued track and returns how many were dropped.
// The current track keeps playing.
func (s *Scheduler) ClearQueue() (int, error) {
	before, _, err := s.queue.Transform(func([]*Track) []*Track {
		return nil
	})
	return before, err
}

// RemoveAt deletes the queued track at pos, counting from 1, and returns
// it. ErrOutOfRange leaves the queue untouched.
func (s *Scheduler) RemoveAt(pos int) (*Track, error) {
	var removed *Track
	_, _, err := s.queue.Transform(func(items []*Track) []*Track {
		if pos < 1 || pos > len(items) {
			return items
		}
		removed = items[pos-1]
		return append(items[:pos-1], items[pos:]...)
	})
	if err != nil {
		return nil, err
	}
	if removed == nil {
		return nil, ErrOutOfRange
	}
	return removed, nil
}

// QueueSnapshot returns the queued tracks in play order.
func (s *Scheduler) QueueSnapshot() []*Track {
	return s.queue.Snapshot()
}

// Current returns the track being played, or nil when the room is idle.
func (s *Scheduler) Current() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State reports the room's lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen reports how many tracks wait behind the current one.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

// GuildID identifies the room this scheduler serves.
func (s *Scheduler) GuildID() snowflake.ID {
	return s.guildID
}

// Done is closed once the loop has exited and the sink is released.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

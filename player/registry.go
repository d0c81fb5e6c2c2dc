package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Registry maps room IDs to their schedulers. All mutation of the mapping
// is serialized through one mutex, so exactly one live scheduler exists per
// room: concurrent lookups race for a single construction and the losers
// receive the winner's instance. Terminated schedulers deregister
// themselves, and a room that died between lookup and use is replaced on
// the next enqueue.
type Registry struct {
	ctx      context.Context
	notifier Notifier
	idle     time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	rooms map[snowflake.ID]*Scheduler
}

// NewRegistry creates an empty registry. ctx bounds the lifetime of every
// scheduler it creates; notifier and idle are handed to each of them.
func NewRegistry(ctx context.Context, notifier Notifier, idle time.Duration) *Registry {
	return &Registry{
		ctx:      ctx,
		notifier: notifier,
		idle:     idle,
		logger:   slog.With(slog.String("component", "registry")),
		rooms:    make(map[snowflake.ID]*Scheduler),
	}
}

// GetOrCreate returns the live scheduler for guildID, creating and starting
// one when none is registered. The sink is opened through factory inside
// the registry's critical section; when it fails, no room is registered and
// the error is returned as is.
func (r *Registry) GetOrCreate(ctx context.Context, guildID snowflake.ID, factory SinkFactory) (*Scheduler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.rooms[guildID]; ok {
		if s.State() != StateTerminated {
			return s, nil
		}
		// Terminated but not yet self-deregistered. Replace it.
		delete(r.rooms, guildID)
	}

	sink, err := factory(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("open sink for guild %s: %w", guildID, err)
	}

	s := newScheduler(r.ctx, guildID, sink, r.notifier, r.idle)
	s.onExit = func() { r.removeIf(guildID, s) }
	r.rooms[guildID] = s
	go s.run()

	r.logger.Info("Room created", slog.String("guild_id", guildID.String()))
	return s, nil
}

// Enqueue pushes a track into guildID's room, creating the room when
// needed. A room that closed between lookup and push is dropped and the
// push retried against a fresh one.
func (r *Registry) Enqueue(ctx context.Context, guildID snowflake.ID, factory SinkFactory, t *Track) (*Scheduler, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		s, err := r.GetOrCreate(ctx, guildID, factory)
		if err != nil {
			return nil, err
		}
		if err = s.Enqueue(t); err == nil {
			return s, nil
		}
		lastErr = err
		r.removeIf(guildID, s)
	}
	return nil, lastErr
}

// Get returns the scheduler registered for guildID, if any.
func (r *Registry) Get(guildID snowflake.ID) (*Scheduler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[guildID]
	return s, ok
}

// Stop terminates guildID's room and detaches it immediately, so a lookup
// right after Stop misses even while the loop is still unwinding. It
// reports whether a room existed.
func (r *Registry) Stop(guildID snowflake.ID) bool {
	s, ok := r.Get(guildID)
	if !ok {
		return false
	}
	s.Stop()
	r.removeIf(guildID, s)
	return true
}

// Remove detaches guildID's registry entry without stopping the room. Safe
// to call for rooms that already deregistered themselves.
func (r *Registry) Remove(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, guildID)
}

// Len reports how many rooms are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// All returns the registered schedulers in no particular order.
func (r *Registry) All() []*Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Scheduler, 0, len(r.rooms))
	for _, s := range r.rooms {
		out = append(out, s)
	}
	return out
}

// Shutdown stops every room and waits for their loops to finish or ctx to
// expire, whichever comes first.
func (r *Registry) Shutdown(ctx context.Context) error {
	rooms := r.All()
	for _, s := range rooms {
		s.Stop()
	}
	for _, s := range rooms {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// removeIf detaches s only while it is still the registered scheduler for
// guildID, so a dying room never evicts its replacement.
func (r *Registry) removeIf(guildID snowflake.ID, s *Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[guildID]; ok && cur == s {
		delete(r.rooms, guildID)
	}
}

package machine

import (
	"log/slog"
	"sync"
	"time"

	"orpheus/metrics"
	"orpheus/player"
)

// StatsMonitor periodically samples the room registry into the playback
// gauges
type StatsMonitor struct {
	registry    *player.Registry
	logger      *slog.Logger
	interval    time.Duration
	wg          *sync.WaitGroup
	stopChannel chan struct{}
}

// NewStatsMonitor creates a new StatsMonitor instance
func NewStatsMonitor(registry *player.Registry, wg *sync.WaitGroup) *StatsMonitor {
	return &StatsMonitor{
		registry:    registry,
		logger:      slog.With("component", "stats-monitor"),
		interval:    15 * time.Second,
		wg:          wg,
		stopChannel: make(chan struct{}),
	}
}

// Start begins playback stats sampling
func (s *StatsMonitor) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("Starting playback stats monitoring")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sample()
			case <-s.stopChannel:
				s.logger.Info("Playback stats monitoring stopped")
				return
			}
		}
	}()
}

// sample refreshes the gauges from a snapshot of the live rooms.
func (s *StatsMonitor) sample() {
	rooms := s.registry.All()

	queued := 0
	for _, room := range rooms {
		queued += room.QueueLen()
	}

	metrics.RoomsActive.Set(float64(len(rooms)))
	metrics.TracksQueued.Set(float64(queued))

	s.logger.Debug("Sampled playback stats",
		slog.Int("rooms", len(rooms)),
		slog.Int("queued", queued))
}

// Stop stops playback stats sampling
func (s *StatsMonitor) Stop() {
	close(s.stopChannel)
}

package machine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orpheus/api"
	"orpheus/config"
	"orpheus/metrics"
	"orpheus/player"
	"orpheus/resolver"
	"orpheus/tts"
)

// Machine represents the main application state
type Machine struct {
	config    *config.Config
	registry  *player.Registry
	discord   *DiscordManager
	webhook   *WebhookManager
	monitor   *StatsMonitor
	api       *api.Server
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errorChan chan error
}

// New creates a new Machine instance
func New(cfg *config.Config) *Machine {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Machine{
		config:    cfg,
		logger:    slog.With("component", "machine"),
		ctx:       ctx,
		cancel:    cancel,
		errorChan: make(chan error, 10),
	}

	// Initialize components. The machine itself is the notifier so that
	// announcements fan out to Discord, the webhook and the counters from
	// one place.
	m.registry = player.NewRegistry(ctx, m, cfg.Player.IdleTimeout)
	m.discord = NewDiscordManager(cfg, m.registry, resolver.New(cfg))
	m.monitor = NewStatsMonitor(m.registry, &m.wg)

	if cfg.Discord.WebhookURL != "" {
		m.webhook = NewWebhookManager(cfg)
	}
	if cfg.API.Enabled {
		m.api = api.NewServer(cfg, m.registry)
	}

	return m
}

// Initialize sets up the machine components
func (m *Machine) Initialize() error {
	m.logger.Info("Initializing machine...")

	if m.config.TTS.Enabled {
		announcer, err := tts.New(m.config)
		if err != nil {
			return fmt.Errorf("failed to initialize speech announcer: %w", err)
		}
		m.discord.announcer = announcer
	}

	// Initialize Discord client
	if err := m.discord.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize Discord: %w", err)
	}

	m.logger.Info("Machine initialized successfully")
	return nil
}

// Start begins all machine operations
func (m *Machine) Start() error {
	m.logger.Info("Starting machine operations...")

	// Start playback stats sampling
	m.monitor.Start()

	// Start the status API
	if m.api != nil {
		m.api.Start(m.errorChan)
	}

	// Start Discord gateway
	if err := m.discord.Start(m.ctx); err != nil {
		return fmt.Errorf("failed to connect to Discord gateway: %w", err)
	}

	m.logger.Info("Machine started successfully")
	return nil
}

// Stop gracefully shuts down the machine
func (m *Machine) Stop() error {
	m.logger.Info("Stopping machine...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop stats sampling
	if m.monitor != nil {
		m.monitor.Stop()
	}

	// Stop accepting API requests
	if m.api != nil {
		if err := m.api.Stop(shutdownCtx); err != nil {
			m.logger.Error("Failed to stop status API", slog.Any("error", err))
		}
	}

	// Tear down every room while the Discord client is still live, so the
	// voice connections release cleanly
	if err := m.registry.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("Failed to drain playback rooms", slog.Any("error", err))
	}

	// Close Discord connection
	if m.discord != nil {
		m.discord.Stop()
	}

	// Cancel context to stop all remaining operations
	m.cancel()

	// Wait for all goroutines to finish
	m.wg.Wait()

	m.logger.Info("Machine stopped")
	return nil
}

// Wait blocks until the machine is stopped
func (m *Machine) Wait() error {
	select {
	case <-m.ctx.Done():
		return m.ctx.Err()
	case err := <-m.errorChan:
		return err
	}
}

// Error returns the error channel for monitoring errors
func (m *Machine) Error() <-chan error {
	return m.errorChan
}

// NowPlaying implements player.Notifier. Every track that starts is counted,
// announced in its origin channel and mirrored to the webhook.
func (m *Machine) NowPlaying(t *player.Track) {
	metrics.TracksPlayed.Inc()

	if err := m.discord.AnnounceNowPlaying(t); err != nil {
		m.logger.Error("Failed to announce track",
			slog.String("title", t.Title),
			slog.Any("error", err))
	}

	if m.webhook != nil {
		if err := m.webhook.SendNowPlaying(t); err != nil {
			m.logger.Error("Failed to mirror announcement to webhook",
				slog.String("title", t.Title),
				slog.Any("error", err))
		}
	}
}

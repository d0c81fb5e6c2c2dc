package main

import (
	"strings"
	"testing"
	"time"

	"orpheus/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Discord: config.DiscordConfig{
			Token:          "test-token",
			CommandChannel: "orpheus",
		},
		Player: config.PlayerConfig{
			IdleTimeout:   10 * time.Second,
			QueuePageSize: 10,
		},
		Resolver: config.ResolverConfig{
			YTDLPPath: "yt-dlp",
			Timeout:   30 * time.Second,
		},
		FFmpeg: config.FFmpegConfig{
			Path: "ffmpeg",
		},
		API: config.APIConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Config)
		wantField string
	}{
		{
			name:   "valid config",
			mutate: func(*config.Config) {},
		},
		{
			name:      "missing discord token",
			mutate:    func(c *config.Config) { c.Discord.Token = "" },
			wantField: "discord.token",
		},
		{
			name:      "zero idle timeout",
			mutate:    func(c *config.Config) { c.Player.IdleTimeout = 0 },
			wantField: "player.idle_timeout",
		},
		{
			name:      "negative idle timeout",
			mutate:    func(c *config.Config) { c.Player.IdleTimeout = -time.Second },
			wantField: "player.idle_timeout",
		},
		{
			name:      "zero queue page size",
			mutate:    func(c *config.Config) { c.Player.QueuePageSize = 0 },
			wantField: "player.queue_page_size",
		},
		{
			name:      "missing ytdlp path",
			mutate:    func(c *config.Config) { c.Resolver.YTDLPPath = "" },
			wantField: "resolver.ytdlp_path",
		},
		{
			name:      "zero resolver timeout",
			mutate:    func(c *config.Config) { c.Resolver.Timeout = 0 },
			wantField: "resolver.timeout",
		},
		{
			name:      "missing ffmpeg path",
			mutate:    func(c *config.Config) { c.FFmpeg.Path = "" },
			wantField: "ffmpeg.path",
		},
		{
			name: "tts enabled without cache dir",
			mutate: func(c *config.Config) {
				c.TTS.Enabled = true
				c.TTS.CacheDir = ""
			},
			wantField: "tts.cache_dir",
		},
		{
			name: "tts disabled ignores cache dir",
			mutate: func(c *config.Config) {
				c.TTS.Enabled = false
				c.TTS.CacheDir = ""
			},
		},
		{
			name:      "api enabled without addr",
			mutate:    func(c *config.Config) { c.API.Addr = "" },
			wantField: "api.addr",
		},
		{
			name: "api disabled ignores addr",
			mutate: func(c *config.Config) {
				c.API.Enabled = false
				c.API.Addr = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Config.Validate() = nil, want error for %s", tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Config.Validate() error = %v, want it to name %s", err, tt.wantField)
			}
		})
	}
}

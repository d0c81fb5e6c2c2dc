package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Discord configuration
	Discord DiscordConfig `mapstructure:"discord"`

	// Player configuration
	Player PlayerConfig `mapstructure:"player"`

	// Resolver configuration
	Resolver ResolverConfig `mapstructure:"resolver"`

	// FFmpeg configuration
	FFmpeg FFmpegConfig `mapstructure:"ffmpeg"`

	// TTS configuration
	TTS TTSConfig `mapstructure:"tts"`

	// API configuration
	API APIConfig `mapstructure:"api"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DiscordConfig holds Discord-specific configuration
type DiscordConfig struct {
	Token string `mapstructure:"token"`

	// CommandChannel restricts commands to text channels with this name.
	// Empty allows commands everywhere.
	CommandChannel string `mapstructure:"command_channel"`

	// WebhookURL optionally mirrors now-playing announcements to a webhook
	WebhookURL string `mapstructure:"webhook_url"`
}

// PlayerConfig holds per-guild playback configuration
type PlayerConfig struct {
	// IdleTimeout is how long an empty room waits for a track before it
	// disconnects and tears down
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// QueuePageSize is how many queued tracks one queue page shows
	QueuePageSize int `mapstructure:"queue_page_size"`
}

// ResolverConfig holds media resolution configuration
type ResolverConfig struct {
	YTDLPPath string        `mapstructure:"ytdlp_path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// FFmpegConfig holds audio transcoder configuration
type FFmpegConfig struct {
	Path string `mapstructure:"path"`
}

// TTSConfig holds spoken announcement configuration
type TTSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Language string `mapstructure:"language"`
	CacheDir string `mapstructure:"cache_dir"`
}

// APIConfig holds HTTP status API configuration
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	// Set defaults
	viper.SetDefault("discord.command_channel", "orpheus")
	viper.SetDefault("player.idle_timeout", "10s")
	viper.SetDefault("player.queue_page_size", 10)
	viper.SetDefault("resolver.ytdlp_path", "yt-dlp")
	viper.SetDefault("resolver.timeout", "30s")
	viper.SetDefault("ffmpeg.path", "ffmpeg")
	viper.SetDefault("tts.enabled", false)
	viper.SetDefault("tts.language", "en")
	viper.SetDefault("tts.cache_dir", filepath.Join(os.TempDir(), "orpheus-tts"))
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.addr", ":8080")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Read config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.orpheus")
	viper.AddConfigPath("/etc/orpheus")

	// Allow environment variables, ORPHEUS_DISCORD_TOKEN and friends
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ORPHEUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateConfig validates the configuration
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return &ConfigError{Field: "discord.token", Message: "Discord token is required"}
	}
	if c.Player.IdleTimeout <= 0 {
		return &ConfigError{Field: "player.idle_timeout", Message: "idle timeout must be positive"}
	}
	if c.Player.QueuePageSize < 1 {
		return &ConfigError{Field: "player.queue_page_size", Message: "queue page size must be at least 1"}
	}
	if c.Resolver.YTDLPPath == "" {
		return &ConfigError{Field: "resolver.ytdlp_path", Message: "yt-dlp path is required"}
	}
	if c.Resolver.Timeout <= 0 {
		return &ConfigError{Field: "resolver.timeout", Message: "resolver timeout must be positive"}
	}
	if c.FFmpeg.Path == "" {
		return &ConfigError{Field: "ffmpeg.path", Message: "ffmpeg path is required"}
	}
	if c.TTS.Enabled && c.TTS.CacheDir == "" {
		return &ConfigError{Field: "tts.cache_dir", Message: "cache directory is required when TTS is enabled"}
	}
	if c.API.Enabled && c.API.Addr == "" {
		return &ConfigError{Field: "api.addr", Message: "listen address is required when the API is enabled"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

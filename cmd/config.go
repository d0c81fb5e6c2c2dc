package cmd

import (
	"fmt"
	"log/slog"

	"orpheus/config"
	"orpheus/logger"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing and validating orpheus configuration.",
}

// configValidateCmd validates the current configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the current configuration file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			slog.Error("Configuration validation failed", slog.Any("error", err))
			return err
		}

		fmt.Println("✅ Configuration is valid")
		return nil
	},
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration values from file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Current Configuration:")
		fmt.Printf("  Discord:\n")
		fmt.Printf("    Token: %s\n", maskToken(cfg.Discord.Token))
		fmt.Printf("    Command channel: %s\n", cfg.Discord.CommandChannel)
		fmt.Printf("    Webhook URL: %s\n", maskURL(cfg.Discord.WebhookURL))
		fmt.Printf("  Player:\n")
		fmt.Printf("    Idle timeout: %s\n", cfg.Player.IdleTimeout)
		fmt.Printf("    Queue page size: %d\n", cfg.Player.QueuePageSize)
		fmt.Printf("  Resolver:\n")
		fmt.Printf("    yt-dlp path: %s\n", cfg.Resolver.YTDLPPath)
		fmt.Printf("    Timeout: %s\n", cfg.Resolver.Timeout)
		fmt.Printf("  FFmpeg:\n")
		fmt.Printf("    Path: %s\n", cfg.FFmpeg.Path)
		fmt.Printf("  TTS:\n")
		fmt.Printf("    Enabled: %t\n", cfg.TTS.Enabled)
		fmt.Printf("    Language: %s\n", cfg.TTS.Language)
		fmt.Printf("    Cache dir: %s\n", cfg.TTS.CacheDir)
		fmt.Printf("  API:\n")
		fmt.Printf("    Enabled: %t\n", cfg.API.Enabled)
		fmt.Printf("    Addr: %s\n", cfg.API.Addr)
		fmt.Printf("  Logging:\n")
		fmt.Printf("    Level: %s\n", cfg.Logging.Level)
		fmt.Printf("    Format: %s\n", cfg.Logging.Format)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

// maskToken hides all but a short prefix of the bot token.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}

// maskURL hides the webhook URL past its scheme and host.
func maskURL(url string) string {
	if len(url) <= 20 {
		return "***"
	}
	return url[:20] + "***"
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orpheus/config"
	"orpheus/logger"
	"orpheus/machine"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orpheus",
	Short: "A Discord music bot",
	Long: `Orpheus is a Discord music bot that plays audio from YouTube and other
sites supported by yt-dlp into voice channels.

Each server gets its own playback room with a queue, driven by slash
commands. A room whose queue stays empty disconnects on its own after a
short idle period.`,
	RunE: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().String("discord-token", "", "Discord bot token")
	rootCmd.Flags().String("discord-webhook", "", "Discord webhook URL for mirroring announcements")
	rootCmd.Flags().String("ytdlp-path", "yt-dlp", "path to the yt-dlp executable")
	rootCmd.Flags().String("ffmpeg-path", "ffmpeg", "path to the ffmpeg executable")
	rootCmd.Flags().Duration("idle-timeout", 10*time.Second, "how long an idle room waits before disconnecting")
	rootCmd.Flags().String("api-addr", ":8080", "status API listen address")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "text", "log format (text, json)")

	viper.BindPFlag("discord.token", rootCmd.Flags().Lookup("discord-token"))
	viper.BindPFlag("discord.webhook_url", rootCmd.Flags().Lookup("discord-webhook"))
	viper.BindPFlag("resolver.ytdlp_path", rootCmd.Flags().Lookup("ytdlp-path"))
	viper.BindPFlag("ffmpeg.path", rootCmd.Flags().Lookup("ffmpeg-path"))
	viper.BindPFlag("player.idle_timeout", rootCmd.Flags().Lookup("idle-timeout"))
	viper.BindPFlag("api.addr", rootCmd.Flags().Lookup("api-addr"))
	viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.Flags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// A .env file in the working directory can carry the bot token during
	// development
	godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// runServer runs the bot until a shutdown signal or a fatal machine error.
func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	m := machine.New(cfg)
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize machine: %w", err)
	}
	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start machine: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		fmt.Printf("\nReceived %s, shutting down gracefully...\n", sig)
	case err := <-m.Error():
		fmt.Printf("Error occurred: %v\n", err)
	}

	if err := m.Stop(); err != nil {
		return fmt.Errorf("failed to stop machine gracefully: %w", err)
	}
	return nil
}

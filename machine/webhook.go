package machine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"orpheus/config"
	"orpheus/player"
)

// WebhookManager mirrors now-playing announcements to a Discord webhook
type WebhookManager struct {
	config *config.Config
	logger *slog.Logger
	client *http.Client
}

// NewWebhookManager creates a new WebhookManager instance
func NewWebhookManager(cfg *config.Config) *WebhookManager {
	return &WebhookManager{
		config: cfg,
		logger: slog.With("component", "webhook"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type webhookPayload struct {
	Username string         `json:"username"`
	Embeds   []webhookEmbed `json:"embeds"`
}

// SendNowPlaying posts the track announcement to the configured webhook
func (w *WebhookManager) SendNowPlaying(t *player.Track) error {
	// Track titles routinely contain quotes, so the body is marshalled
	// rather than templated.
	data, err := json.Marshal(webhookPayload{
		Username: "orpheus",
		Embeds: []webhookEmbed{{
			Title:       "Now playing",
			Description: fmt.Sprintf("[%s](%s)", t.Title, t.URL),
			Color:       embedColor,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequest("POST", w.config.Discord.WebhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode, body)
	}

	w.logger.Debug("Mirrored announcement to webhook",
		slog.String("title", t.Title),
		slog.Int("status", resp.StatusCode))

	return nil
}

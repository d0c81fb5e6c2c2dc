package machine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orpheus/metrics"
	"orpheus/player"
	"orpheus/resolver"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// getCommands returns the Discord slash commands
func (d *DiscordManager) getCommands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        "join",
			Description: "Joins your voice channel",
		},
		discord.SlashCommandCreate{
			Name:        "play",
			Description: "Plays a track, or queues it when something is already playing",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "query",
					Description: "A URL or search terms",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "pause",
			Description: "Pauses the current track",
		},
		discord.SlashCommandCreate{
			Name:        "resume",
			Description: "Resumes a paused track",
		},
		discord.SlashCommandCreate{
			Name:        "skip",
			Description: "Skips the current track",
		},
		discord.SlashCommandCreate{
			Name:        "stop",
			Description: "Stops playback, clears the queue and leaves",
		},
		discord.SlashCommandCreate{
			Name:        "queue",
			Description: "Shows what is queued",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "page",
					Description: "Queue page to show",
					Required:    false,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "clear",
			Description: "Removes every queued track",
		},
		discord.SlashCommandCreate{
			Name:        "remove",
			Description: "Removes one queued track",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "position",
					Description: "Queue position to remove, counting from 1",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "shuffle",
			Description: "Shuffles the queued tracks",
		},
	}
}

// commandListener handles Discord slash commands
func (d *DiscordManager) commandListener(event *events.ApplicationCommandInteractionCreate) {
	if event.GuildID() == nil {
		d.replyEphemeral(event, "This command only works in a server.")
		return
	}
	if !d.allowedChannel(event.ChannelID()) {
		d.replyEphemeral(event, fmt.Sprintf("Use the #%s channel for music commands.", d.config.Discord.CommandChannel))
		return
	}

	data := event.SlashCommandInteractionData()
	switch data.CommandName() {
	case "join":
		d.handleJoin(event)
	case "play":
		d.handlePlay(event, data.String("query"))
	case "pause":
		d.handlePause(event)
	case "resume":
		d.handleResume(event)
	case "skip":
		d.handleSkip(event)
	case "stop":
		d.handleStop(event)
	case "queue":
		page, _ := data.OptInt("page")
		d.handleQueue(event, page)
	case "clear":
		d.handleClear(event)
	case "remove":
		d.handleRemove(event, data.Int("position"))
	case "shuffle":
		d.handleShuffle(event)
	}
}

func (d *DiscordManager) handleJoin(event *events.ApplicationCommandInteractionCreate) {
	guildID := *event.GuildID()

	voiceChannelID, ok := d.userVoiceChannel(guildID, event.User().ID)
	if !ok {
		d.replyEphemeral(event, "Connect to a voice channel first.")
		return
	}

	if _, err := d.registry.GetOrCreate(context.Background(), guildID, d.sinkFactory(voiceChannelID)); err != nil {
		d.logger.Error("Failed to join voice channel",
			slog.String("guild_id", guildID.String()),
			slog.Any("error", err))
		d.reply(event, "Couldn't join your voice channel.")
		return
	}

	d.reply(event, "✅ Joined your voice channel.")
}

func (d *DiscordManager) handlePlay(event *events.ApplicationCommandInteractionCreate, query string) {
	guildID := *event.GuildID()

	voiceChannelID, ok := d.userVoiceChannel(guildID, event.User().ID)
	if !ok {
		d.replyEphemeral(event, "Connect to a voice channel first.")
		return
	}

	// Resolution shells out and can take seconds, so acknowledge now and
	// edit the response once the track is queued.
	if err := event.DeferCreateMessage(false); err != nil {
		d.logger.Error("Failed to defer Discord response", slog.Any("error", err))
		return
	}

	go d.resolveAndPlay(event, guildID, voiceChannelID, query)
}

func (d *DiscordManager) resolveAndPlay(event *events.ApplicationCommandInteractionCreate, guildID, voiceChannelID snowflake.ID, query string) {
	track, err := d.resolver.Resolve(context.Background(), query, event.User().Mention(), event.ChannelID())
	if err != nil {
		metrics.ResolveFailures.Inc()
		d.logger.Warn("Failed to resolve query",
			slog.String("query", query),
			slog.Any("error", err))
		d.updateResponse(event, resolveErrorMessage(err))
		return
	}

	s, err := d.registry.Enqueue(context.Background(), guildID, d.sinkFactory(voiceChannelID), track)
	if err != nil {
		d.logger.Error("Failed to enqueue track",
			slog.String("guild_id", guildID.String()),
			slog.String("title", track.Title),
			slog.Any("error", err))
		d.updateResponse(event, "Couldn't join your voice channel.")
		return
	}
	metrics.TracksEnqueued.Inc()

	// Show the queued embed only when something is already playing; the
	// room announces the track that starts right away.
	if s.Current() != nil {
		name, icon := d.footer()
		d.updateResponseEmbed(event, queuedEmbed(track, s.QueueLen(), name, icon))
		return
	}
	d.updateResponse(event, fmt.Sprintf("▶️ Starting **%s**.", track.Title))
}

func (d *DiscordManager) handlePause(event *events.ApplicationCommandInteractionCreate) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok || !s.Pause() {
		d.reply(event, "Nothing is playing.")
		return
	}
	d.reply(event, "⏸️ Paused.")
}

func (d *DiscordManager) handleResume(event *events.ApplicationCommandInteractionCreate) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok || !s.Resume() {
		d.reply(event, "Nothing is paused.")
		return
	}
	d.reply(event, "▶️ Resumed.")
}

func (d *DiscordManager) handleSkip(event *events.ApplicationCommandInteractionCreate) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok || !s.Skip() {
		d.reply(event, "Nothing is playing.")
		return
	}
	d.reply(event, "⏭️ Skipped.")
}

func (d *DiscordManager) handleStop(event *events.ApplicationCommandInteractionCreate) {
	if !d.registry.Stop(*event.GuildID()) {
		d.reply(event, "Nothing to stop.")
		return
	}
	d.reply(event, "⏹️ Stopped and left the voice channel.")
}

func (d *DiscordManager) handleQueue(event *events.ApplicationCommandInteractionCreate, page int) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok {
		d.reply(event, "The queue is empty.")
		return
	}

	current := s.Current()
	items := s.QueueSnapshot()
	if current == nil && len(items) == 0 {
		d.reply(event, "The queue is empty.")
		return
	}

	name, icon := d.footer()
	d.replyEmbed(event, queueEmbed(current, items, page, d.config.Player.QueuePageSize, name, icon))
}

func (d *DiscordManager) handleClear(event *events.ApplicationCommandInteractionCreate) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok {
		d.reply(event, "The queue is already empty.")
		return
	}

	cleared, err := s.ClearQueue()
	if err != nil || cleared == 0 {
		d.reply(event, "The queue is already empty.")
		return
	}
	d.reply(event, fmt.Sprintf("🧹 Cleared %d queued tracks.", cleared))
}

func (d *DiscordManager) handleRemove(event *events.ApplicationCommandInteractionCreate, position int) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok {
		d.reply(event, "Nothing is queued.")
		return
	}

	removed, err := s.RemoveAt(position)
	if err != nil {
		if errors.Is(err, player.ErrOutOfRange) {
			d.reply(event, fmt.Sprintf("No track at position %d.", position))
			return
		}
		d.reply(event, "Nothing is queued.")
		return
	}
	d.reply(event, fmt.Sprintf("🗑️ Removed **%s**.", removed.Title))
}

func (d *DiscordManager) handleShuffle(event *events.ApplicationCommandInteractionCreate) {
	s, ok := d.registry.Get(*event.GuildID())
	if !ok {
		d.reply(event, "Nothing is queued.")
		return
	}

	n, err := s.Shuffle()
	if err != nil || n == 0 {
		d.reply(event, "Nothing is queued.")
		return
	}
	d.reply(event, fmt.Sprintf("🔀 Shuffled %d queued tracks.", n))
}

// resolveErrorMessage maps resolution failures to user facing text.
func resolveErrorMessage(err error) string {
	var resolveErr *resolver.ResolveError
	if errors.As(err, &resolveErr) {
		switch resolveErr.Kind {
		case resolver.KindNoResults:
			return "No results for that query."
		case resolver.KindLiveStream:
			return "Live streams can't be queued."
		}
	}
	return "Couldn't play that. Try another link or search."
}

func (d *DiscordManager) reply(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		d.logger.Error("Failed to send Discord response", slog.Any("error", err))
	}
}

func (d *DiscordManager) replyEphemeral(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		d.logger.Error("Failed to send Discord response", slog.Any("error", err))
	}
}

func (d *DiscordManager) replyEmbed(event *events.ApplicationCommandInteractionCreate, embed discord.Embed) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build())
	if err != nil {
		d.logger.Error("Failed to send Discord response", slog.Any("error", err))
	}
}

func (d *DiscordManager) updateResponse(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := d.client.Rest().UpdateInteractionResponse(d.client.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		d.logger.Error("Failed to send Discord response", slog.Any("error", err))
	}
}

func (d *DiscordManager) updateResponseEmbed(event *events.ApplicationCommandInteractionCreate, embed discord.Embed) {
	_, err := d.client.Rest().UpdateInteractionResponse(d.client.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		Build())
	if err != nil {
		d.logger.Error("Failed to send Discord response", slog.Any("error", err))
	}
}

package machine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"orpheus/config"
	"orpheus/player"
	"orpheus/resolver"
	"orpheus/tts"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
)

// DiscordManager handles all Discord bot operations
type DiscordManager struct {
	config    *config.Config
	registry  *player.Registry
	resolver  *resolver.Resolver
	announcer *tts.Announcer
	client    bot.Client
	logger    *slog.Logger

	mu   sync.Mutex
	self discord.OAuth2User
}

// NewDiscordManager creates a new DiscordManager instance
func NewDiscordManager(cfg *config.Config, registry *player.Registry, res *resolver.Resolver) *DiscordManager {
	return &DiscordManager{
		config:   cfg,
		registry: registry,
		resolver: res,
		logger:   slog.With("component", "discord"),
	}
}

// Initialize sets up the Discord bot client
func (d *DiscordManager) Initialize() error {
	d.logger.Info("Initializing Discord client")

	client, err := disgo.New(d.config.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds|gateway.IntentGuildVoiceStates),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds|cache.FlagChannels|cache.FlagVoiceStates),
		),
		bot.WithEventListenerFunc(d.readyListener),
		bot.WithEventListenerFunc(d.commandListener),
		bot.WithEventListenerFunc(d.voiceStateListener),
	)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}

	d.client = client

	// Register commands
	if _, err = client.Rest().SetGlobalCommands(client.ApplicationID(), d.getCommands()); err != nil {
		return fmt.Errorf("failed to register Discord commands: %w", err)
	}

	d.logger.Info("Discord client initialized successfully")
	return nil
}

// Start opens the Discord gateway connection
func (d *DiscordManager) Start(ctx context.Context) error {
	if err := d.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to connect to Discord gateway: %w", err)
	}
	return nil
}

// Stop closes the Discord connection
func (d *DiscordManager) Stop() {
	if d.client != nil {
		d.client.Close(context.Background())
	}
}

// readyListener records the bot user for embed footers
func (d *DiscordManager) readyListener(event *events.Ready) {
	d.mu.Lock()
	d.self = event.User
	d.mu.Unlock()

	d.logger.Info("Logged in to Discord", slog.String("username", event.User.Username))
}

// voiceStateListener tears a room down when the bot itself is kicked or
// disconnected from its voice channel, so the room never ghosts.
func (d *DiscordManager) voiceStateListener(event *events.GuildVoiceStateUpdate) {
	if event.VoiceState.UserID != d.client.ApplicationID() {
		return
	}
	if event.VoiceState.ChannelID != nil {
		return
	}
	if d.registry.Stop(event.VoiceState.GuildID) {
		d.logger.Info("Voice connection lost, room stopped",
			slog.String("guild_id", event.VoiceState.GuildID.String()))
	}
}

// AnnounceNowPlaying posts the now-playing embed into the channel the track
// was requested from.
func (d *DiscordManager) AnnounceNowPlaying(t *player.Track) error {
	if t.ChannelID == 0 {
		return nil
	}

	name, icon := d.footer()
	_, err := d.client.Rest().CreateMessage(t.ChannelID, discord.NewMessageCreateBuilder().
		SetEmbeds(nowPlayingEmbed(t, name, icon)).
		Build())
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}

	d.logger.Debug("Announced track",
		slog.String("title", t.Title),
		slog.String("channel", t.ChannelID.String()))

	return nil
}

// footer returns the bot's display name and avatar for embed footers.
func (d *DiscordManager) footer() (string, string) {
	d.mu.Lock()
	self := d.self
	d.mu.Unlock()
	if self.Username == "" {
		return "orpheus", ""
	}
	return self.Username, self.EffectiveAvatarURL()
}

// userVoiceChannel looks up which voice channel a guild member is in.
func (d *DiscordManager) userVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	voiceState, ok := d.client.Caches().VoiceState(guildID, userID)
	if !ok || voiceState.ChannelID == nil {
		return 0, false
	}
	return *voiceState.ChannelID, true
}

// allowedChannel reports whether commands may be used in the given channel.
func (d *DiscordManager) allowedChannel(channelID snowflake.ID) bool {
	name := d.config.Discord.CommandChannel
	if name == "" {
		return true
	}
	channel, ok := d.client.Caches().Channel(channelID)
	if !ok {
		// Cache miss, let the command through rather than lock users out.
		return true
	}
	return channel.Name() == name
}

// sinkFactory binds the requesting user's voice channel into the sink the
// registry will open for the guild.
func (d *DiscordManager) sinkFactory(channelID snowflake.ID) player.SinkFactory {
	return func(ctx context.Context, guildID snowflake.ID) (player.Sink, error) {
		return d.OpenVoice(ctx, guildID, channelID)
	}
}

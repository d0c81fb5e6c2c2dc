package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"orpheus/config"
	"orpheus/ffmpg"
	"orpheus/player"
	"orpheus/tts"

	"github.com/disgoorg/audio/opus"
	"github.com/disgoorg/audio/pcm"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/ffmpeg-audio"
	"github.com/disgoorg/snowflake/v2"
)

// silenceFrame is one 20ms stereo frame of PCM silence, sent while paused.
var silenceFrame = make([]int16, 960*ffmpg.Channels)

// OpenVoice joins the given voice channel and returns a sink that plays
// through it.
func (d *DiscordManager) OpenVoice(ctx context.Context, guildID, channelID snowflake.ID) (player.Sink, error) {
	conn := d.client.VoiceManager().CreateConn(guildID)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Open(openCtx, channelID, false, false); err != nil {
		return nil, fmt.Errorf("failed to open voice connection: %w", err)
	}
	if err := conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("failed to set speaking flag: %w", err)
	}

	d.logger.Info("Joined voice channel",
		slog.String("guild_id", guildID.String()),
		slog.String("channel_id", channelID.String()))

	return &VoiceSink{
		guildID:   guildID,
		conn:      conn,
		config:    d.config,
		announcer: d.announcer,
		logger:    slog.With("component", "voice", "guild_id", guildID.String()),
	}, nil
}

// VoiceSink plays tracks into one guild's voice connection. Its owning
// scheduler is the only caller of Play, so at most one session runs at a
// time.
type VoiceSink struct {
	guildID   snowflake.ID
	conn      voice.Conn
	config    *config.Config
	announcer *tts.Announcer
	logger    *slog.Logger

	mu      sync.Mutex
	session *playSession
	closed  bool
	paused  atomic.Bool
}

var _ player.Sink = (*VoiceSink)(nil)

// Play starts decoding the track's stream URL and feeding it to the voice
// connection. onComplete fires exactly once when the track ends, however
// it ends.
func (vs *VoiceSink) Play(ctx context.Context, t *player.Track, onComplete func(error)) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		return fmt.Errorf("voice sink for guild %s is closed", vs.guildID)
	}
	if vs.session != nil {
		return fmt.Errorf("guild %s already has a track playing", vs.guildID)
	}

	playCtx, cancel := context.WithCancel(ctx)

	provider, err := ffmpg.New(playCtx, t.StreamURL, ffmpeg.WithExec(vs.config.FFmpeg.Path))
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	session := &playSession{
		cancel:   cancel,
		provider: provider,
	}
	session.complete = func(err error) {
		vs.detach(session)
		onComplete(err)
	}

	var frames pcm.FrameProvider = provider
	if vs.announcer != nil {
		if intro, introErr := vs.announcer.TrackIntro(t.Title); introErr == nil {
			frames = newChainedProvider(intro, provider)
		} else {
			vs.logger.Warn("Failed to build track intro", slog.Any("error", introErr))
		}
	}

	encoder, err := opus.NewEncoder(ffmpg.SampleRate, ffmpg.Channels, opus.ApplicationAudio)
	if err != nil {
		provider.Close()
		cancel()
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}
	opusProvider, err := pcm.NewOpusProvider(encoder, &sinkProvider{sink: vs, session: session, frames: frames})
	if err != nil {
		provider.Close()
		cancel()
		return fmt.Errorf("failed to create opus provider: %w", err)
	}

	vs.session = session
	vs.paused.Store(false)
	vs.conn.SetOpusFrameProvider(opusProvider)

	vs.logger.Info("Track started", slog.String("title", t.Title))
	return nil
}

// Stop ends the current track, if any. The track's completion callback
// fires with a nil error before the pipeline finishes unwinding.
func (vs *VoiceSink) Stop() {
	vs.mu.Lock()
	session := vs.session
	vs.session = nil
	vs.mu.Unlock()
	if session == nil {
		return
	}

	session.stopped.Store(true)
	session.finish(nil)
	session.cancel()
	session.provider.Close()
	session.resolve(nil)
}

// Pause holds playback without ending the track.
func (vs *VoiceSink) Pause() {
	vs.paused.Store(true)
}

// Resume continues a paused track.
func (vs *VoiceSink) Resume() {
	vs.paused.Store(false)
}

// IsActive reports whether a track is currently loaded.
func (vs *VoiceSink) IsActive() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.session != nil
}

// Close stops any running track and leaves the voice channel.
func (vs *VoiceSink) Close() {
	vs.mu.Lock()
	if vs.closed {
		vs.mu.Unlock()
		return
	}
	vs.closed = true
	vs.mu.Unlock()

	vs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	vs.conn.Close(ctx)

	vs.logger.Info("Voice connection released")
}

func (vs *VoiceSink) detach(session *playSession) {
	vs.mu.Lock()
	if vs.session == session {
		vs.session = nil
	}
	vs.mu.Unlock()
}

// playSession tracks one running ffmpeg pipeline and guarantees that its
// completion callback fires exactly once.
type playSession struct {
	cancel   context.CancelFunc
	provider *ffmpg.AudioProvider
	complete func(error)

	once        sync.Once
	cleanupOnce sync.Once
	stopped     atomic.Bool
}

func (s *playSession) finish(err error) {
	s.once.Do(func() {
		s.complete(err)
	})
}

// resolve tears the pipeline down after the frame stream ends. readErr is
// the error that ended it; io.EOF means the track ran out on its own, in
// which case the process exit status decides success.
func (s *playSession) resolve(readErr error) {
	s.cleanupOnce.Do(func() {
		go func() {
			waitErr := s.provider.Wait()
			s.provider.Close()
			s.cancel()

			switch {
			case s.stopped.Load():
				s.finish(nil)
			case readErr == nil || errors.Is(readErr, io.EOF):
				s.finish(waitErr)
			default:
				s.finish(readErr)
			}
		}()
	})
}

// sinkProvider sits between the opus encoder and the track's PCM source,
// injecting silence while paused and resolving the session when the
// source ends.
type sinkProvider struct {
	sink    *VoiceSink
	session *playSession
	frames  pcm.FrameProvider
}

func (p *sinkProvider) ProvidePCMFrame() ([]int16, error) {
	if p.session.stopped.Load() {
		return nil, io.EOF
	}
	if p.sink.paused.Load() {
		return silenceFrame, nil
	}

	frame, err := p.frames.ProvidePCMFrame()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			p.sink.logger.Error("Playback read failed", slog.Any("error", err))
		}
		p.session.resolve(err)
		return nil, io.EOF
	}
	return frame, nil
}

func (p *sinkProvider) Close() {
	p.frames.Close()
}

// chainedProvider plays PCM sources back to back, advancing when one
// returns EOF. The voice connection pulls frames from a single goroutine,
// so no locking is needed.
type chainedProvider struct {
	providers []pcm.FrameProvider
}

func newChainedProvider(providers ...pcm.FrameProvider) *chainedProvider {
	return &chainedProvider{providers: providers}
}

func (c *chainedProvider) ProvidePCMFrame() ([]int16, error) {
	for len(c.providers) > 0 {
		frame, err := c.providers[0].ProvidePCMFrame()
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
		c.providers[0].Close()
		c.providers = c.providers[1:]
	}
	return nil, io.EOF
}

func (c *chainedProvider) Close() {
	for _, p := range c.providers {
		p.Close()
	}
	c.providers = nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"orpheus/config"
	"orpheus/logger"
	"orpheus/player"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a read-only HTTP view of the playback rooms plus the
// Prometheus metrics endpoint.
type Server struct {
	config   *config.Config
	registry *player.Registry
	logger   *slog.Logger
	srv      *http.Server
}

// NewServer creates a new Server instance
func NewServer(cfg *config.Config, registry *player.Registry) *Server {
	s := &Server{
		config:   cfg,
		registry: registry,
		logger:   logger.WithComponent("api"),
	}
	s.srv = &http.Server{
		Addr:    cfg.API.Addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler creates and configures the Gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/rooms", s.listRooms)
		v1.GET("/rooms/:guild_id", s.getRoom)
	}

	return r
}

// Start begins serving in the background. A fatal listen error is reported
// on errs.
func (s *Server) Start(errs chan<- error) {
	s.logger.Info("Starting status API", slog.String("addr", s.config.API.Addr))

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("status API failed: %w", err)
		}
	}()
}

// Stop shuts the server down, waiting for in-flight requests to finish
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping status API")
	return s.srv.Shutdown(ctx)
}

// trackResponse describes one track in API responses.
type trackResponse struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Duration    int    `json:"duration"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// roomResponse summarizes one playback room.
type roomResponse struct {
	GuildID string         `json:"guild_id"`
	State   string         `json:"state"`
	Queued  int            `json:"queued"`
	Current *trackResponse `json:"current,omitempty"`
}

// roomDetailResponse adds the queue contents to a room summary.
type roomDetailResponse struct {
	GuildID string          `json:"guild_id"`
	State   string          `json:"state"`
	Current *trackResponse  `json:"current,omitempty"`
	Queue   []trackResponse `json:"queue"`
}

// listRooms returns a summary of every live room.
func (s *Server) listRooms(c *gin.Context) {
	rooms := s.registry.All()

	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomResponse{
			GuildID: room.GuildID().String(),
			State:   room.State().String(),
			Queued:  room.QueueLen(),
			Current: toTrackResponse(room.Current()),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(out),
		"rooms": out,
	})
}

// getRoom returns one room with its full queue.
func (s *Server) getRoom(c *gin.Context) {
	guildID, err := snowflake.Parse(c.Param("guild_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return
	}

	room, ok := s.registry.Get(guildID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such room"})
		return
	}

	items := room.QueueSnapshot()
	queue := make([]trackResponse, 0, len(items))
	for _, t := range items {
		queue = append(queue, *toTrackResponse(t))
	}

	c.JSON(http.StatusOK, roomDetailResponse{
		GuildID: room.GuildID().String(),
		State:   room.State().String(),
		Current: toTrackResponse(room.Current()),
		Queue:   queue,
	})
}

func toTrackResponse(t *player.Track) *trackResponse {
	if t == nil {
		return nil
	}
	return &trackResponse{
		Title:       t.Title,
		URL:         t.URL,
		Duration:    t.Duration,
		RequestedBy: t.RequestedBy,
	}
}

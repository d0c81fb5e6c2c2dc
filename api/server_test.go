package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orpheus/config"
	"orpheus/player"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopNotifier struct{}

func (noopNotifier) NowPlaying(*player.Track) {}

// stubSink accepts a track and never finishes it, which pins the room in
// the playing state for the duration of a test.
type stubSink struct{}

func (stubSink) Play(context.Context, *player.Track, func(error)) error { return nil }
func (stubSink) Stop()                                                  {}
func (stubSink) Pause()                                                 {}
func (stubSink) Resume()                                                {}
func (stubSink) IsActive() bool                                         { return true }
func (stubSink) Close()                                                 {}

func stubFactory(context.Context, snowflake.ID) (player.Sink, error) {
	return stubSink{}, nil
}

func setupTestServer(t *testing.T) (http.Handler, *player.Registry) {
	t.Helper()

	registry := player.NewRegistry(context.Background(), noopNotifier{}, time.Hour)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		registry.Shutdown(ctx)
	})

	cfg := &config.Config{API: config.APIConfig{Enabled: true, Addr: "127.0.0.1:0"}}
	return NewServer(cfg, registry).Handler(), registry
}

// fillRoom queues tracks into a fresh room and waits until the first one
// is playing.
func fillRoom(t *testing.T, registry *player.Registry, guildID snowflake.ID, titles ...string) {
	t.Helper()

	for _, title := range titles {
		track := &player.Track{Title: title, URL: "https://example.com/" + title, Duration: 100}
		if _, err := registry.Enqueue(context.Background(), guildID, stubFactory, track); err != nil {
			t.Fatalf("enqueue %q: %v", title, err)
		}
	}

	room, ok := registry.Get(guildID)
	if !ok {
		t.Fatal("room not registered after enqueue")
	}
	deadline := time.Now().Add(2 * time.Second)
	for room.Current() == nil {
		if time.Now().After(deadline) {
			t.Fatal("room never started playing")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestListRoomsEmpty(t *testing.T) {
	handler, _ := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/v1/rooms", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Count int            `json:"count"`
		Rooms []roomResponse `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 || len(resp.Rooms) != 0 {
		t.Errorf("expected no rooms, got %+v", resp)
	}
}

func TestListRoomsShowsLiveRoom(t *testing.T) {
	handler, registry := setupTestServer(t)
	guildID := snowflake.ID(100)
	fillRoom(t, registry, guildID, "first", "second")

	req, _ := http.NewRequest("GET", "/v1/rooms", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Count int            `json:"count"`
		Rooms []roomResponse `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 room, got %d", resp.Count)
	}

	room := resp.Rooms[0]
	if room.GuildID != guildID.String() {
		t.Errorf("unexpected guild id %q", room.GuildID)
	}
	if room.State != "playing" {
		t.Errorf("unexpected state %q", room.State)
	}
	if room.Current == nil || room.Current.Title != "first" {
		t.Errorf("unexpected current track: %+v", room.Current)
	}
	if room.Queued != 1 {
		t.Errorf("expected 1 queued track, got %d", room.Queued)
	}
}

func TestGetRoomShowsQueue(t *testing.T) {
	handler, registry := setupTestServer(t)
	guildID := snowflake.ID(200)
	fillRoom(t, registry, guildID, "now", "next", "later")

	req, _ := http.NewRequest("GET", "/v1/rooms/"+guildID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp roomDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Current == nil || resp.Current.Title != "now" {
		t.Errorf("unexpected current track: %+v", resp.Current)
	}
	if len(resp.Queue) != 2 || resp.Queue[0].Title != "next" || resp.Queue[1].Title != "later" {
		t.Errorf("unexpected queue: %+v", resp.Queue)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	handler, _ := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/v1/rooms/4242", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestGetRoomInvalidID(t *testing.T) {
	handler, _ := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/v1/rooms/not-a-snowflake", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}

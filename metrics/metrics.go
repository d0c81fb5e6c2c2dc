// Package metrics exports the bot's Prometheus collectors. Everything is
// registered on the default registry and served by the status API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoomsActive is the number of guilds with a live playback room.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orpheus_rooms_active",
		Help: "Number of guilds with a live playback room.",
	})

	// TracksQueued is the number of tracks waiting across all rooms.
	TracksQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orpheus_tracks_queued",
		Help: "Tracks currently waiting in queues across all rooms.",
	})

	// TracksEnqueued counts tracks accepted into queues.
	TracksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orpheus_tracks_enqueued_total",
		Help: "Tracks accepted into playback queues.",
	})

	// TracksPlayed counts tracks handed to a voice connection.
	TracksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orpheus_tracks_played_total",
		Help: "Tracks that started playing.",
	})

	// ResolveFailures counts queries that produced no playable track.
	ResolveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orpheus_resolve_failures_total",
		Help: "Queries that could not be resolved to a playable track.",
	})
)

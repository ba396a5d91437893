package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// eventWriteWait bounds a single frame write.
	eventWriteWait = 10 * time.Second
	// eventPongWait is how long a silent client is kept before the feed drops it.
	eventPongWait = 60 * time.Second
	// eventPingPeriod must be shorter than eventPongWait.
	eventPingPeriod = 25 * time.Second
)

// eventUpgrader keeps the default same-origin check.
var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type snapshotEvent struct {
	Type    string    `json:"type"`
	Version uint64    `json:"version"`
	TakenAt time.Time `json:"takenAt"`
	Records int       `json:"records"`
}

// handleEvents handles GET /api/events as a websocket feed. One "snapshot"
// message is written per published version, starting with the current one.
// The subscription is cancelled when a read or write fails or the client closes.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := eventUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		slog.Debug("feed_event", "event", "upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.deps.Hub.Subscribe()
	defer cancel()
	slog.Debug("feed_event", "event", "feed_opened", "subscribers", s.deps.Hub.Subscribers())

	// Clients send nothing; reading only services pongs and the close handshake.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(eventPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			slog.Debug("feed_event", "event", "feed_closed")
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		case snap, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			msg := snapshotEvent{Type: "snapshot", Version: snap.Version, TakenAt: snap.TakenAt, Records: len(snap.Records)}
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("feed_event", "event", "write_failed", "version", snap.Version, "error", err)
				return
			}
		}
	}
}

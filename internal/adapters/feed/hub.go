// Package feed fans out collection snapshots to every connected terminal.
package feed

import (
	"sync"

	"rollcall/internal/domain/snapshot"
)

// Hub holds the latest snapshot and delivers new ones to subscribers.
// A slow subscriber only ever sees the newest snapshot it has not yet read.
type Hub struct {
	mu     sync.Mutex
	latest snapshot.Snapshot
	have   bool
	nextID int
	subs   map[int]chan snapshot.Snapshot
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan snapshot.Snapshot)}
}

// Publish stores s as the latest snapshot and offers it to every subscriber.
// Snapshots whose version is not newer than the current one are dropped.
// POST: Latest() returns s if it was accepted
func (h *Hub) Publish(s snapshot.Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.have && s.Version <= h.latest.Version {
		return false
	}
	h.latest = s
	h.have = true
	for _, ch := range h.subs {
		offer(ch, s)
	}
	return true
}

// offer replaces any unread snapshot in the single-slot channel with s.
func offer(ch chan snapshot.Snapshot, s snapshot.Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}

// Latest returns the most recent snapshot, if any has been published.
func (h *Hub) Latest() (snapshot.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.have
}

// Subscribe registers a listener. The current snapshot, if any, is delivered
// immediately. Call cancel to unsubscribe; the channel is closed afterwards.
func (h *Hub) Subscribe() (<-chan snapshot.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan snapshot.Snapshot, 1)
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	if h.have {
		ch <- h.latest
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

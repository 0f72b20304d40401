package app

import (
	"context"
	"sync"

	"quiz-platform/internal/domain"
)

// LeaderboardHub fans recomputed leaderboard snapshots out to live subscribers.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.LeaderboardSnapshot]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{subscribers: make(map[string]map[chan domain.LeaderboardSnapshot]struct{})}
}

// Subscribe registers a listener for one leaderboard and immediately delivers initial.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe(leaderboardID string, initial domain.LeaderboardSnapshot) (<-chan domain.LeaderboardSnapshot, func()) {
	ch := make(chan domain.LeaderboardSnapshot, 8)
	ch <- initial

	h.mu.Lock()
	subs, ok := h.subscribers[leaderboardID]
	if !ok {
		subs = make(map[chan domain.LeaderboardSnapshot]struct{})
		h.subscribers[leaderboardID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[leaderboardID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, leaderboardID)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of its leaderboard.
// A subscriber that fell behind loses its oldest pending snapshot instead of blocking the publisher.
func (h *LeaderboardHub) Publish(snapshot domain.LeaderboardSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[snapshot.LeaderboardID] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (h *LeaderboardHub) SubscriberCount(leaderboardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[leaderboardID])
}

type localPublisher struct {
	hub *LeaderboardHub
}

func (p localPublisher) Publish(_ context.Context, snapshot domain.LeaderboardSnapshot) error {
	p.hub.Publish(snapshot)
	return nil
}

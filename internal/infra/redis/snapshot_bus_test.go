package redis

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

type chanSink chan domain.LeaderboardSnapshot

func (s chanSink) Publish(snapshot domain.LeaderboardSnapshot) { s <- snapshot }

func TestSnapshotBusRelaysSnapshots(t *testing.T) {
	mr, client := newRedis(t)
	bus := NewSnapshotBus(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := make(chanSink, 1)
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx, sink) }()

	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(snapshotChannel)[snapshotChannel] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	want := domain.LeaderboardSnapshot{
		LeaderboardID: "lb-1",
		Entries:       []domain.LeaderboardEntry{{UserID: "u1", Score: 10, Position: 1}},
	}
	if err := bus.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-sink:
		if got.LeaderboardID != "lb-1" || len(got.Entries) != 1 || got.Entries[0].UserID != "u1" {
			t.Fatalf("unexpected snapshot: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}

package redis

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

const snapshotChannel = "leaderboard:snapshots"

// Sink receives snapshots relayed from the channel, usually the local hub.
type Sink interface {
	Publish(snapshot domain.LeaderboardSnapshot)
}

// SnapshotBus relays recomputed leaderboards between instances over Redis pub/sub,
// so a recompute on the worker reaches websocket clients on every API replica.
type SnapshotBus struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewSnapshotBus(client *redis.Client, log zerolog.Logger) *SnapshotBus {
	return &SnapshotBus{client: client, log: log}
}

func (b *SnapshotBus) Publish(ctx context.Context, snapshot domain.LeaderboardSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return errors.Wrap(b.client.Publish(ctx, snapshotChannel, raw).Err(), "publish snapshot")
}

// Run forwards every snapshot on the channel to sink until ctx is cancelled.
func (b *SnapshotBus) Run(ctx context.Context, sink Sink) error {
	sub := b.client.Subscribe(ctx, snapshotChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe snapshots")
	}
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var snapshot domain.LeaderboardSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				b.log.Warn().Err(err).Msg("dropping malformed leaderboard snapshot")
				continue
			}
			sink.Publish(snapshot)
		}
	}
}

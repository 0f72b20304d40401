package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

func TestAnswerKeyCacheCachesInRedis(t *testing.T) {
	mr, client := newRedis(t)

	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(client, loader, time.Minute, zerolog.Nop())

	key, err := cache.GetAnswerKey(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:answer-key") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:quiz-1:answer-key"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter window, got %v", ttl)
	}

	// second call hits the cache and keeps the answers intact
	cached, err := cache.GetAnswerKey(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get key 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.MaxScore() != key.MaxScore() || len(cached.Questions[0].Answers) != 2 {
		t.Fatalf("cached key differs: %+v", cached)
	}
}

func TestAnswerKeyCacheInvalidateDeletesKey(t *testing.T) {
	mr, client := newRedis(t)
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(client, loader, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if err := cache.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:quiz-1:answer-key") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.calls)
	}
}

func TestAnswerKeyCacheIgnoresCorruptValues(t *testing.T) {
	mr, client := newRedis(t)
	if err := mr.Set("quiz:quiz-1:answer-key", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(client, loader, time.Minute, zerolog.Nop())

	if _, err := cache.GetAnswerKey(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback, got %d calls", loader.calls)
	}
}

func TestAnswerKeyCacheDropsKeyInvalidatedDuringLoad(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	loader := &editingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(client, loader, time.Minute, zerolog.Nop())
	// the question is edited while the old key is being read from the database
	loader.edit = func() {
		if err := cache.Invalidate(ctx, "quiz-1"); err != nil {
			t.Errorf("invalidate: %v", err)
		}
	}

	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if mr.Exists("quiz:quiz-1:answer-key") {
		t.Fatalf("key loaded before the invalidate was cached")
	}

	loader.edit = nil
	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !mr.Exists("quiz:quiz-1:answer-key") {
		t.Fatalf("expected the fresh key to be cached")
	}
	if loader.calls != 2 {
		t.Fatalf("expected two loads, got %d", loader.calls)
	}
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewLeaderboardCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "lb-1"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	cache.Set(ctx, "lb-1", []domain.LeaderboardEntry{
		{LeaderboardID: "lb-1", UserID: "u1", Username: "alice", Score: 30, Position: 1},
		{LeaderboardID: "lb-1", UserID: "u2", Username: "bob", Score: 20, Position: 2},
	})
	if !mr.Exists("leaderboard:lb-1:entries") {
		t.Fatalf("expected entries key")
	}
	entries, ok := cache.Get(ctx, "lb-1")
	if !ok || len(entries) != 2 || entries[1].Username != "bob" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	cache.Invalidate(ctx, "lb-1")
	if _, ok := cache.Get(ctx, "lb-1"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestLeaderboardCacheStoresEmptyList(t *testing.T) {
	_, client := newRedis(t)
	cache := NewLeaderboardCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	cache.Set(ctx, "lb-1", nil)
	entries, ok := cache.Get(ctx, "lb-1")
	if !ok || len(entries) != 0 {
		t.Fatalf("expected cached empty list, got %v %v", entries, ok)
	}
}

type countingLoader struct {
	key   domain.AnswerKey
	calls int
}

func (l *countingLoader) LoadAnswerKey(_ context.Context, quizID string) (domain.AnswerKey, error) {
	l.calls++
	key := l.key
	key.QuizID = quizID
	return key, nil
}

// editingLoader runs edit in the middle of a load.
type editingLoader struct {
	key   domain.AnswerKey
	edit  func()
	calls int
}

func (l *editingLoader) LoadAnswerKey(_ context.Context, quizID string) (domain.AnswerKey, error) {
	l.calls++
	if l.edit != nil {
		l.edit()
	}
	key := l.key
	key.QuizID = quizID
	return key, nil
}

func sampleKey() domain.AnswerKey {
	limit := 300
	return domain.AnswerKey{
		QuizID:    "quiz-1",
		TimeLimit: &limit,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Type:   domain.SingleChoice,
				Text:   "What is 2 + 2?",
				Points: 1,
				Answers: []domain.Answer{
					{ID: "a1", Text: "3"},
					{ID: "a2", Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

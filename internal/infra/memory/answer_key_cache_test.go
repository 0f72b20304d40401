package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-platform/internal/domain"
)

func TestAnswerKeyCacheCaches(t *testing.T) {
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(loader, time.Minute)

	if _, err := cache.GetAnswerKey(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	key, err := cache.GetAnswerKey(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get key 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if key.MaxScore() != 3 {
		t.Fatalf("expected max score 3, got %d", key.MaxScore())
	}
}

func TestAnswerKeyCacheInvalidate(t *testing.T) {
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if err := cache.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls)
	}
}

func TestAnswerKeyCacheSkipsKeyInvalidatedDuringLoad(t *testing.T) {
	ctx := context.Background()
	var cache *AnswerKeyCache
	loader := &hookLoader{key: sampleKey()}
	loader.during = func() {
		if err := cache.Invalidate(ctx, "quiz-1"); err != nil {
			t.Errorf("invalidate: %v", err)
		}
	}
	cache = NewAnswerKeyCache(loader, time.Minute)

	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if _, ok := cache.lookup("quiz-1"); ok {
		t.Fatalf("key loaded before the invalidate was cached")
	}

	loader.during = nil
	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := cache.lookup("quiz-1"); !ok {
		t.Fatalf("expected the fresh key to be cached")
	}
}

type hookLoader struct {
	key    domain.AnswerKey
	during func()
}

func (l *hookLoader) LoadAnswerKey(_ context.Context, quizID string) (domain.AnswerKey, error) {
	if l.during != nil {
		l.during()
	}
	key := l.key
	key.QuizID = quizID
	return key, nil
}

func TestAnswerKeyCacheExpires(t *testing.T) {
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(loader, time.Minute)
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }
	ctx := context.Background()

	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.GetAnswerKey(ctx, "quiz-1"); err != nil {
		t.Fatalf("get key after ttl: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.calls)
	}
}

func TestAnswerKeyCacheDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{err: domain.ErrQuizNotFound}
	cache := NewAnswerKeyCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetAnswerKey(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected every miss to hit the loader, got %d", loader.calls)
	}
}

func TestEntryCacheRoundTrip(t *testing.T) {
	cache := NewEntryCache()
	ctx := context.Background()
	if _, ok := cache.Get(ctx, "lb-1"); ok {
		t.Fatalf("expected empty cache")
	}
	cache.Set(ctx, "lb-1", []domain.LeaderboardEntry{{UserID: "u1", Position: 1, Score: 10}})
	got, ok := cache.Get(ctx, "lb-1")
	if !ok || len(got) != 1 || got[0].UserID != "u1" {
		t.Fatalf("unexpected cached entries: %+v", got)
	}
	cache.Invalidate(ctx, "lb-1")
	if _, ok := cache.Get(ctx, "lb-1"); ok {
		t.Fatalf("expected entries to be invalidated")
	}
}

type countingLoader struct {
	key   domain.AnswerKey
	err   error
	calls int
}

func (l *countingLoader) LoadAnswerKey(_ context.Context, quizID string) (domain.AnswerKey, error) {
	l.calls++
	if l.err != nil {
		return domain.AnswerKey{}, l.err
	}
	key := l.key
	key.QuizID = quizID
	return key, nil
}

func sampleKey() domain.AnswerKey {
	return domain.AnswerKey{
		QuizID: "quiz-1",
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
			{
				ID:     "q2",
				Type:   domain.OpenText,
				Text:   "Capital of France?",
				Points: 2,
				Answers: []domain.Answer{
					{ID: "a3", Text: "Paris", IsCorrect: true},
				},
			},
		},
	}
}

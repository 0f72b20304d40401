package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

// AnswerKeyCache keeps answer keys in process memory with a TTL so grading
// does not reload questions on every submission.
type AnswerKeyCache struct {
	loader app.AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedKey
	// gen counts invalidations per quiz; a load only fills the cache if it is unchanged.
	gen map[string]uint64
}

type cachedKey struct {
	key       domain.AnswerKey
	expiresAt time.Time
}

func NewAnswerKeyCache(loader app.AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedKey),
		gen:    make(map[string]uint64),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error) {
	if key, ok := c.lookup(quizID); ok {
		return key, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if key, ok := c.lookup(quizID); ok {
			return key, nil
		}
		c.mu.RLock()
		gen := c.gen[quizID]
		c.mu.RUnlock()
		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return domain.AnswerKey{}, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gen[quizID] == gen {
				c.cache[quizID] = cachedKey{key: key, expiresAt: c.clock().Add(c.ttlWithJitter())}
			}
			c.mu.Unlock()
		}
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) Invalidate(_ context.Context, quizID string) error {
	c.sf.Forget(quizID)
	c.mu.Lock()
	delete(c.cache, quizID)
	c.gen[quizID]++
	c.mu.Unlock()
	return nil
}

func (c *AnswerKeyCache) lookup(quizID string) (domain.AnswerKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.AnswerKey{}, false
	}
	return entry.key, true
}

// ttlWithJitter adds up to 10% so keys loaded together do not expire together.
// Callers hold c.mu.
func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// EntryCache is the in-process leaderboard entry cache used when Redis is not configured.
type EntryCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.LeaderboardEntry
}

func NewEntryCache() *EntryCache {
	return &EntryCache{entries: make(map[string][]domain.LeaderboardEntry)}
}

func (c *EntryCache) Get(_ context.Context, leaderboardID string) ([]domain.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, ok := c.entries[leaderboardID]
	if !ok {
		return nil, false
	}
	return append([]domain.LeaderboardEntry(nil), entries...), true
}

func (c *EntryCache) Set(_ context.Context, leaderboardID string, entries []domain.LeaderboardEntry) {
	c.mu.Lock()
	c.entries[leaderboardID] = append([]domain.LeaderboardEntry(nil), entries...)
	c.mu.Unlock()
}

func (c *EntryCache) Invalidate(_ context.Context, leaderboardID string) {
	c.mu.Lock()
	delete(c.entries, leaderboardID)
	c.mu.Unlock()
}

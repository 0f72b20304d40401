package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

// AnswerKeyCache stores answer keys as JSON strings and falls back to a loader on a miss.
// Keys look like: quiz:{quizID}:answer-key
//
// Every Invalidate bumps quiz:{quizID}:answer-key:version. A refill records the version
// before loading and writes under WATCH, so a key loaded before an invalidate is dropped.
type AnswerKeyCache struct {
	client *redis.Client
	loader app.AnswerKeyLoader
	ttl    time.Duration
	log    zerolog.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader app.AnswerKeyLoader, ttl time.Duration, log zerolog.Logger) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error) {
	if key, ok := c.read(ctx, quizID); ok {
		return key, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if key, ok := c.read(ctx, quizID); ok {
			return key, nil
		}
		version, verr := c.version(ctx, c.client, quizID)
		if verr != nil {
			c.log.Warn().Err(verr).Str("quiz_id", quizID).Msg("answer key version read failed")
		}
		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return domain.AnswerKey{}, err
		}
		if verr == nil {
			c.write(ctx, key, version)
		}
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) Invalidate(ctx context.Context, quizID string) error {
	c.sf.Forget(quizID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(quizID))
		pipe.Del(ctx, answerKeyKey(quizID))
		return nil
	})
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *AnswerKeyCache) version(ctx context.Context, cmd getter, quizID string) (int64, error) {
	v, err := cmd.Get(ctx, versionKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *AnswerKeyCache) read(ctx context.Context, quizID string) (domain.AnswerKey, bool) {
	raw, err := c.client.Get(ctx, answerKeyKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("quiz_id", quizID).Msg("answer key cache read failed")
		}
		return domain.AnswerKey{}, false
	}
	var key domain.AnswerKey
	if err := json.Unmarshal(raw, &key); err != nil {
		c.log.Warn().Err(err).Str("quiz_id", quizID).Msg("discarding corrupt answer key")
		return domain.AnswerKey{}, false
	}
	return key, true
}

// write is best effort; a failed or skipped write only costs a reload.
// It stores the key only while the version still equals loadedAt.
func (c *AnswerKeyCache) write(ctx context.Context, key domain.AnswerKey, loadedAt int64) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx, key.QuizID)
		if err != nil {
			return err
		}
		if current != loadedAt {
			return errStaleAnswerKey
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, answerKeyKey(key.QuizID), raw, c.ttlWithJitter())
			return nil
		})
		return err
	}, versionKey(key.QuizID))
	switch {
	case err == nil:
	case errors.Is(err, errStaleAnswerKey), errors.Is(err, redis.TxFailedErr):
		c.log.Debug().Str("quiz_id", key.QuizID).Msg("answer key changed during load, not cached")
	default:
		c.log.Warn().Err(err).Str("quiz_id", key.QuizID).Msg("answer key cache write failed")
	}
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

var errStaleAnswerKey = errors.New("answer key invalidated during load")

func answerKeyKey(quizID string) string {
	return "quiz:" + quizID + ":answer-key"
}

func versionKey(quizID string) string {
	return answerKeyKey(quizID) + ":version"
}

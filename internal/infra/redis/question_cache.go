package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"ebcoins-quiz-service/internal/app"
	"ebcoins-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	// BankKey holds the JSON-encoded question bank.
	BankKey = "quiz:questions"
	// VersionKey is bumped on every save so in-flight fills of an older
	// bank are discarded.
	VersionKey = "quiz:questions:version"
)

var errStaleFill = errors.New("question bank changed during fill")

// QuestionCache caches the question bank in Redis and falls back to the
// backing store on a miss. Writes go through and delete the cached copy,
// so every instance sees the new bank on its next read.
type QuestionCache struct {
	client  *redis.Client
	backing app.QuestionRepository
	ttl     time.Duration
	sf      singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, backing app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(BankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx); ok {
			return qs, nil
		}

		version, verErr := c.version(ctx, c.client)
		if verErr != nil {
			log.Printf("question cache version read failed: %v", verErr)
		}

		qs, err := c.backing.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if verErr != nil {
			return qs, nil
		}

		data, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		if err := c.fill(ctx, version, data); err != nil && !errors.Is(err, errStaleFill) {
			log.Printf("question cache fill failed: %v", err)
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := c.backing.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, VersionKey)
		pipe.Del(ctx, BankKey)
		return nil
	})
	return err
}

// fill stores the bank only if no save happened since version was read.
func (c *QuestionCache) fill(ctx context.Context, version int64, data []byte) error {
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, BankKey, data, c.ttlWithJitter())
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			return errStaleFill
		}
		return err
	}, VersionKey)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *QuestionCache) version(ctx context.Context, cmd getter) (int64, error) {
	v, err := cmd.Get(ctx, VersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, BankKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("question cache read failed: %v", err)
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		log.Printf("question cache decode failed: %v", err)
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

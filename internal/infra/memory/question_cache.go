package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ebcoins-quiz-service/internal/app"
	"ebcoins-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const bankKey = "questions"

// QuestionCache caches the question bank with TTL to avoid repeated reads
// of the backing store. Writes go through and invalidate the cache.
type QuestionCache struct {
	backing app.QuestionRepository
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	mu        sync.RWMutex
	rnd       *rand.Rand
	cached    []domain.Question
	expiresAt time.Time
	valid     bool
	// gen advances on every invalidation; a fill started under an older
	// generation is discarded.
	gen uint64
}

func NewQuestionCache(backing app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.fresh(c.clock()); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(bankKey, func() (interface{}, error) {
		now := c.clock()
		if qs, ok := c.fresh(now); ok {
			return qs, nil
		}

		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		qs, err := c.backing.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.cached = cloneQuestions(qs)
			c.expiresAt = now.Add(c.ttlWithJitter())
			c.valid = true
		}
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (c *QuestionCache) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	c.Invalidate()
	if err := c.backing.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops the cached bank.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.valid = false
	c.gen++
	c.mu.Unlock()
}

func (c *QuestionCache) fresh(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.valid && c.expiresAt.After(now) {
		return cloneQuestions(c.cached), true
	}
	return nil, false
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
)

// GeneratorCache caches generated quizzes with TTL to avoid repeated LLM calls
// for identical requests, and coalesces identical requests already in flight.
type GeneratorCache struct {
	next  app.Generator
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewGeneratorCache(next app.Generator, ttl time.Duration) *GeneratorCache {
	return &GeneratorCache{
		next:  next,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuiz),
	}
}

func (c *GeneratorCache) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error) {
	key := req.Fingerprint()
	flight := key
	if req.Fresh {
		// A fresh request must not join a cached or in-flight answer.
		flight = "fresh:" + key
	} else if quiz, ok := c.lookup(key); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(flight, func() (interface{}, error) {
		if !req.Fresh {
			if quiz, ok := c.lookup(key); ok {
				return quiz, nil
			}
		}

		quiz, err := c.next.Generate(ctx, req)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[key] = cachedQuiz{
			quiz:      quiz,
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return cloneQuiz(result.(domain.Quiz)), nil
}

func (c *GeneratorCache) lookup(key string) (domain.Quiz, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return cloneQuiz(entry.quiz), true
	}
	return domain.Quiz{}, false
}

func (c *GeneratorCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// cloneQuiz keeps cached entries isolated from callers' slices.
func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	if q.WeakAreas != nil {
		out.WeakAreas = append([]string(nil), q.WeakAreas...)
	}
	return out
}

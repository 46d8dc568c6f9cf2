package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
)

// GeneratorCache shares generated quizzes across instances through Redis and
// falls back to the wrapped generator on a miss.
// Quizzes are stored as JSON: SET quiz:generated:{fingerprint} {quiz} EX ttl
type GeneratorCache struct {
	client *redis.Client
	next   app.Generator
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGeneratorCache(client *redis.Client, next app.Generator, ttl time.Duration) *GeneratorCache {
	return &GeneratorCache{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *GeneratorCache) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error) {
	key := c.key(req.Fingerprint())
	flight := key
	if req.Fresh {
		flight = "fresh:" + key
	} else if quiz, ok := c.lookup(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(flight, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if !req.Fresh {
			if quiz, ok := c.lookup(ctx, key); ok {
				return quiz, nil
			}
		}

		quiz, err := c.next.Generate(ctx, req)
		if err != nil {
			return domain.Quiz{}, err
		}

		data, err := json.Marshal(quiz)
		if err != nil {
			return quiz, nil
		}
		if err := c.client.Set(ctx, key, data, c.ttlWithJitter()).Err(); err != nil {
			// best-effort: a cache write failure must not fail generation
			log.Printf("cache generated quiz: %v", err)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *GeneratorCache) lookup(ctx context.Context, key string) (domain.Quiz, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached quiz: %v", err)
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		log.Printf("decode cached quiz %s: %v", key, err)
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *GeneratorCache) key(fingerprint string) string {
	return "quiz:generated:" + fingerprint
}

func (c *GeneratorCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

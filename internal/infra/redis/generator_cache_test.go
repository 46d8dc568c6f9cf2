package redis

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"notes-quiz-service/internal/domain"
)

func TestGeneratorCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	gen := &countingGenerator{quiz: sampleQuiz()}
	cache := NewGeneratorCache(newClient(mr), gen, time.Minute)

	if _, err := cache.Generate(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected generator called once, got %d", gen.calls.Load())
	}
	key := "quiz:generated:" + sampleRequest().Fingerprint()
	if !mr.Exists(key) {
		t.Fatalf("expected %s to be set", key)
	}
	if ttl := mr.TTL(key); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache, generator not incremented.
	quiz, err := cache.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected cache hit, generator calls=%d", gen.calls.Load())
	}
	if quiz.Title != "Cells" || len(quiz.Questions) != 1 || quiz.Questions[0].CorrectOption != 2 {
		t.Fatalf("unexpected cached quiz %+v", quiz)
	}
}

func TestGeneratorCacheSharedAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	first := &countingGenerator{quiz: sampleQuiz()}
	second := &countingGenerator{quiz: sampleQuiz()}
	_, _ = NewGeneratorCache(newClient(mr), first, time.Minute).Generate(context.Background(), sampleRequest())
	_, _ = NewGeneratorCache(newClient(mr), second, time.Minute).Generate(context.Background(), sampleRequest())

	if first.calls.Load() != 1 || second.calls.Load() != 0 {
		t.Fatalf("expected second instance to reuse cached quiz, calls=%d/%d", first.calls.Load(), second.calls.Load())
	}
}

func TestGeneratorCacheIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	_ = mr.Set("quiz:generated:"+sampleRequest().Fingerprint(), "{not json")
	gen := &countingGenerator{quiz: sampleQuiz()}
	if _, err := NewGeneratorCache(newClient(mr), gen, time.Minute).Generate(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected corrupt entry to fall through, calls=%d", gen.calls.Load())
	}
}

type countingGenerator struct {
	quiz  domain.Quiz
	calls atomic.Int32
}

func (g *countingGenerator) Generate(_ context.Context, _ domain.GenerationRequest) (domain.Quiz, error) {
	g.calls.Add(1)
	return g.quiz, nil
}

func sampleRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Notes:      strings.Repeat("Cells contain organelles. ", 4),
		Difficulty: domain.DifficultyEasy,
		Count:      5,
		Language:   "English",
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "Cells",
		Questions: []domain.Question{
			{
				Prompt:        "Which organelle holds DNA?",
				Options:       []string{"Ribosome", "Golgi", "Nucleus", "Vacuole"},
				CorrectOption: 2,
			},
		},
		WeakAreas: []string{"Organelles"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestGeneratorCacheFreshBypassesRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	gen := &countingGenerator{quiz: sampleQuiz()}
	cache := NewGeneratorCache(newClient(mr), gen, time.Minute)
	_, _ = cache.Generate(context.Background(), sampleRequest())

	fresh := sampleRequest()
	fresh.Fresh = true
	if _, err := cache.Generate(context.Background(), fresh); err != nil {
		t.Fatalf("fresh generate: %v", err)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("expected fresh request to skip the cache, calls %d", gen.calls.Load())
	}
	if _, err := cache.Generate(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("expected a cache hit after the fresh write, calls %d", gen.calls.Load())
	}
}

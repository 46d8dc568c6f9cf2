package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"notes-quiz-service/internal/domain"
)

func TestGeneratorCacheCaches(t *testing.T) {
	gen := &countingGenerator{quiz: sampleQuiz()}
	cache := NewGeneratorCache(gen, time.Minute)

	if _, err := cache.Generate(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected generator once, got %d", gen.calls.Load())
	}

	quiz, err := cache.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected cache hit, generator calls %d", gen.calls.Load())
	}
	if quiz.Title != "Cells" {
		t.Fatalf("unexpected cached quiz %+v", quiz)
	}

	other := sampleRequest()
	other.Count = 15
	if _, err := cache.Generate(context.Background(), other); err != nil {
		t.Fatalf("generate other: %v", err)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("expected a different request to miss, calls %d", gen.calls.Load())
	}
}

func TestGeneratorCacheExpires(t *testing.T) {
	gen := &countingGenerator{quiz: sampleQuiz()}
	cache := NewGeneratorCache(gen, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.Generate(context.Background(), sampleRequest())
	now = now.Add(2 * time.Minute)
	_, _ = cache.Generate(context.Background(), sampleRequest())

	if gen.calls.Load() != 2 {
		t.Fatalf("expected expiry to force reload, calls %d", gen.calls.Load())
	}
}

func TestGeneratorCacheDoesNotCacheFailures(t *testing.T) {
	gen := &countingGenerator{err: errors.New("boom")}
	cache := NewGeneratorCache(gen, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.Generate(context.Background(), sampleRequest()); err == nil {
			t.Fatalf("expected error")
		}
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("expected failures to be retried by the caller, calls %d", gen.calls.Load())
	}
}

func TestGeneratorCacheCoalescesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	gen := &countingGenerator{quiz: sampleQuiz(), release: release}
	cache := NewGeneratorCache(gen, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Generate(context.Background(), sampleRequest())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if gen.calls.Load() != 1 {
		t.Fatalf("expected a single upstream call, got %d", gen.calls.Load())
	}
}

func TestGeneratorCacheReturnsIsolatedCopies(t *testing.T) {
	cache := NewGeneratorCache(&countingGenerator{quiz: sampleQuiz()}, time.Minute)

	first, _ := cache.Generate(context.Background(), sampleRequest())
	first.Questions[0].Options[0] = "mutated"

	second, _ := cache.Generate(context.Background(), sampleRequest())
	if second.Questions[0].Options[0] != "Mitochondria" {
		t.Fatalf("cache entry was mutated through a returned quiz")
	}
}

type countingGenerator struct {
	quiz    domain.Quiz
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (g *countingGenerator) Generate(_ context.Context, _ domain.GenerationRequest) (domain.Quiz, error) {
	g.calls.Add(1)
	if g.release != nil {
		<-g.release
	}
	return g.quiz, g.err
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
				Prompt:        "Powerhouse of the cell?",
				Options:       []string{"Mitochondria", "Golgi", "Nucleus", "Vacuole"},
				CorrectOption: 0,
			},
		},
	}
}

func TestGeneratorCacheFreshBypassesAndReplaces(t *testing.T) {
	gen := &countingGenerator{quiz: sampleQuiz()}
	cache := NewGeneratorCache(gen, time.Minute)

	_, _ = cache.Generate(context.Background(), sampleRequest())

	fresh := sampleRequest()
	fresh.Fresh = true
	gen.quiz.Title = "Cells again"
	if _, err := cache.Generate(context.Background(), fresh); err != nil {
		t.Fatalf("fresh generate: %v", err)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("expected fresh request to reach the generator, calls %d", gen.calls.Load())
	}

	quiz, _ := cache.Generate(context.Background(), sampleRequest())
	if gen.calls.Load() != 2 || quiz.Title != "Cells again" {
		t.Fatalf("expected the fresh quiz to replace the cached one, got %q after %d calls", quiz.Title, gen.calls.Load())
	}
}

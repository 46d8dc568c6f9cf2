package app

import (
	"sync"
	"time"

	"notes-quiz-service/internal/domain"
)

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.c }

func (m *manualTicker) Stop() { m.once.Do(func() { close(m.stopped) }) }

func (m *manualTicker) isStopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

func newTestSession(quiz *domain.Quiz, opts ...SessionOption) (*Session, *manualTicker) {
	ticker := newManualTicker()
	opts = append(opts, WithTicker(func(time.Duration) Ticker { return ticker }))
	return NewSession(quiz, opts...), ticker
}

// twoQuestionQuiz has correct indices [1, 0].
func twoQuestionQuiz() *domain.Quiz {
	return &domain.Quiz{
		Title:      "Photosynthesis",
		Difficulty: domain.DifficultyMedium,
		Questions: []domain.Question{
			{
				Prompt:        "Where does photosynthesis happen?",
				Options:       []string{"Mitochondria", "Chloroplasts", "Nucleus", "Ribosomes"},
				CorrectOption: 1,
				Explanation:   "Chloroplasts hold chlorophyll.",
			},
			{
				Prompt:        "Which gas is released?",
				Options:       []string{"Oxygen", "Nitrogen", "Helium", "Argon"},
				CorrectOption: 0,
				Explanation:   "Water splitting releases oxygen.",
			},
		},
		NotesSummary: "Plants turn light into chemical energy.",
	}
}

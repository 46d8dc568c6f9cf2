package app

import (
	"fmt"
	"sync"
	"time"

	"notes-quiz-service/internal/domain"
)

// DefaultTickInterval is the real-time period of the elapsed-time counter.
const DefaultTickInterval = time.Second

// Ticker is the scheduled-task handle that drives a session's elapsed-time counter.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// SessionOption customises a session at creation.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	interval  time.Duration
	newTicker TickerFactory
	onTick    func(*Session)
}

// WithTickInterval overrides the one-second timer period.
func WithTickInterval(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithTicker swaps the ticker implementation, mainly for tests.
func WithTicker(f TickerFactory) SessionOption {
	return func(o *sessionOptions) {
		if f != nil {
			o.newTicker = f
		}
	}
}

// WithTickHook registers a callback run after every counted tick.
// The hook runs on the timer goroutine without the session lock held.
func WithTickHook(fn func(*Session)) SessionOption {
	return func(o *sessionOptions) {
		o.onTick = fn
	}
}

// Session is one attempt at a quiz. Questions are visited once, forward only.
//
// States are Presenting(i) (locked == false) and Locked(i) (locked == true).
// Advancing from Locked(last) finishes the session and yields a result;
// Exit abandons it without one. Both stop the timer.
type Session struct {
	quiz *domain.Quiz

	mu         sync.Mutex
	current    int
	selections []int
	locked     bool
	elapsed    int
	finished   bool
	exited     bool

	ticker   Ticker
	onTick   func(*Session)
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSession starts a session at Presenting(0) with every selection unanswered
// and starts its timer. The quiz is shared and never mutated.
// A quiz without questions yields a session that is already finished.
func NewSession(quiz *domain.Quiz, opts ...SessionOption) *Session {
	o := sessionOptions{interval: DefaultTickInterval, newTicker: NewTimeTicker}
	for _, opt := range opts {
		opt(&o)
	}

	selections := make([]int, len(quiz.Questions))
	for i := range selections {
		selections[i] = domain.Unanswered
	}

	s := &Session{
		quiz:       quiz,
		selections: selections,
		finished:   len(selections) == 0,
		ticker:     o.newTicker(o.interval),
		onTick:     o.onTick,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.run()
	if s.finished {
		s.stopTimer()
	}
	return s
}

// Quiz returns the quiz this session is an attempt at.
func (s *Session) Quiz() *domain.Quiz {
	return s.quiz
}

// Select records optionIdx for question index. Only valid in Presenting(index);
// a locked, finished or exited session is left untouched.
func (s *Session) Select(index, optionIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPositionLocked(index); err != nil {
		return err
	}
	if s.locked {
		return fmt.Errorf("%w: question %d is locked", domain.ErrInvalidSelection, index)
	}
	if !s.quiz.Questions[index].IsValidOption(optionIdx) {
		return fmt.Errorf("%w: option %d out of range", domain.ErrInvalidSelection, optionIdx)
	}
	s.selections[index] = optionIdx
	return nil
}

// Confirm locks the current question and reveals feedback. It requires a selection.
func (s *Session) Confirm(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPositionLocked(index); err != nil {
		return err
	}
	if s.locked {
		return fmt.Errorf("%w: question %d already locked", domain.ErrInvalidSelection, index)
	}
	if s.selections[index] == domain.Unanswered {
		return fmt.Errorf("%w: question %d has no selection", domain.ErrInvalidSelection, index)
	}
	s.locked = true
	return nil
}

// Advance moves from Locked(index) to Presenting(index+1). From Locked(last)
// it finishes the session and returns the result; the result is nil otherwise.
func (s *Session) Advance(index int) (*domain.QuizResult, error) {
	s.mu.Lock()
	if err := s.checkPositionLocked(index); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !s.locked {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: question %d not confirmed", domain.ErrInvalidSelection, index)
	}
	if index < len(s.selections)-1 {
		s.current++
		s.locked = false
		s.mu.Unlock()
		return nil, nil
	}

	s.finished = true
	result := BuildResult(*s.quiz, s.selections, s.elapsed)
	s.mu.Unlock()

	s.stopTimer()
	return &result, nil
}

// Exit abandons the session. No result is produced.
func (s *Session) Exit() {
	s.mu.Lock()
	if s.finished || s.exited {
		s.mu.Unlock()
		return
	}
	s.exited = true
	s.mu.Unlock()

	s.stopTimer()
}

// Active reports whether the session still accepts transitions.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.finished && !s.exited
}

// Elapsed returns the elapsed-seconds counter.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Selections returns a copy of the per-question selections.
func (s *Session) Selections() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.selections))
	copy(out, s.selections)
	return out
}

// Done is closed once the timer goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// View snapshots the session for presentation.
func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.selections)
	if total == 0 {
		return domain.SessionView{
			Selection: domain.Unanswered,
			Finished:  true,
			Clock:     FormatClock(s.elapsed),
		}
	}
	view := domain.SessionView{
		CurrentIndex:   s.current,
		Total:          total,
		Selection:      s.selections[s.current],
		Locked:         s.locked,
		Finished:       s.finished,
		ElapsedSeconds: s.elapsed,
		Clock:          FormatClock(s.elapsed),
		Progress:       (s.current + 1) * 100 / total,
	}
	if s.locked {
		question := s.quiz.Questions[s.current]
		view.Feedback = &domain.Feedback{
			Correct:       question.IsCorrect(s.selections[s.current]),
			CorrectOption: question.CorrectOption,
			Explanation:   question.Explanation,
		}
	}
	return view
}

func (s *Session) checkPositionLocked(index int) error {
	if s.finished || s.exited {
		return fmt.Errorf("%w: session is over", domain.ErrInvalidSelection)
	}
	if index != s.current {
		return fmt.Errorf("%w: question %d is not current (at %d)", domain.ErrInvalidSelection, index, s.current)
	}
	return nil
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ticker.C():
			if s.tick() && s.onTick != nil {
				s.onTick(s)
			}
		case <-s.quit:
			return
		}
	}
}

// tick counts one elapsed second unless the session already ended.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.exited {
		return false
	}
	s.elapsed++
	return true
}

// stopTimer does not wait for the timer goroutine: a tick hook may be blocked
// on a caller's lock. Ticks after the end are discarded by tick.
func (s *Session) stopTimer() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.quit)
	})
}

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

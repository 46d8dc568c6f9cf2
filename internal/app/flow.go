package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/export"
)

// Generator is the quiz generation gateway.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error)
}

// CaptureProvider yields a still JPEG image from a camera-like device.
type CaptureProvider interface {
	Capture(ctx context.Context) ([]byte, error)
}

// FlowConfig holds per-flow generation defaults and session options.
type FlowConfig struct {
	DefaultLanguage string
	MaxNotesChars   int
	SessionOptions  []SessionOption
}

// Flow sequences Home -> Generating -> Session -> Result for one learner.
// At most one generation call is in flight; only one quiz and session are live.
type Flow struct {
	learnerID string
	generator Generator
	capture   CaptureProvider
	cfg       FlowConfig
	now       func() time.Time

	mu          sync.Mutex
	state       domain.FlowState
	quiz        *domain.Quiz
	session     *Session
	result      *domain.QuizResult
	lastErr     string
	inFlight    bool
	epoch       uint64
	generated   int
	closed      bool
	subscribers map[chan domain.FlowSnapshot]struct{}
}

// NewFlow creates a flow on the Home screen. capture may be nil.
func NewFlow(learnerID string, generator Generator, capture CaptureProvider, cfg FlowConfig) *Flow {
	return &Flow{
		learnerID:   learnerID,
		generator:   generator,
		capture:     capture,
		cfg:         cfg,
		now:         time.Now,
		state:       domain.FlowHome,
		subscribers: make(map[chan domain.FlowSnapshot]struct{}),
	}
}

// LearnerID returns the owner of the flow.
func (f *Flow) LearnerID() string {
	return f.learnerID
}

// Generate requests a quiz from study notes or client-supplied image bytes and
// blocks until the gateway answers. On success the flow enters Session; on
// failure it returns to Home carrying a user-facing message.
func (f *Flow) Generate(ctx context.Context, req domain.GenerationRequest) error {
	req, err := req.Normalize(f.cfg.DefaultLanguage, f.cfg.MaxNotesChars)
	if err != nil {
		f.reject(err, req.Mode())
		return err
	}
	epoch, fresh, err := f.acquire()
	if err != nil {
		return err
	}
	req.Fresh = fresh
	return f.runGeneration(ctx, epoch, req)
}

// Scan captures a still image from the capture provider and generates from it.
// Notes on req are ignored. The flow is Generating while the capture is pending.
func (f *Flow) Scan(ctx context.Context, req domain.GenerationRequest) error {
	epoch, fresh, err := f.acquire()
	if err != nil {
		return err
	}

	var image []byte
	if f.capture == nil {
		err = &domain.CaptureError{Reason: domain.CaptureNoDevice}
	} else {
		image, err = f.capture.Capture(ctx)
	}
	if err == nil && len(image) == 0 {
		err = &domain.CaptureError{Reason: domain.CaptureGeneric, Err: errors.New("empty frame")}
	}
	if err == nil {
		req.Notes = ""
		req.Image = image
		req, err = req.Normalize(f.cfg.DefaultLanguage, f.cfg.MaxNotesChars)
	}
	if err != nil {
		log.Printf("capture for %s failed: %v", f.learnerID, err)
		f.release(epoch, err, domain.ModeImage)
		return err
	}
	req.Fresh = fresh
	return f.runGeneration(ctx, epoch, req)
}

// acquire claims the single generation slot from the Home screen and enters
// Generating. fresh is set once the flow has produced a quiz before, so a new
// practice from the same material is not served from a cache.
func (f *Flow) acquire() (epoch uint64, fresh bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return 0, false, domain.ErrGenerationInFlight
	}
	if f.closed || f.state != domain.FlowHome {
		return 0, false, fmt.Errorf("%w: cannot generate from %s", domain.ErrInvalidTransition, f.state)
	}
	f.inFlight = true
	f.lastErr = ""
	f.state = domain.FlowGenerating
	f.broadcastLocked()
	return f.epoch, f.generated > 0, nil
}

// release gives the slot back after a failed capture. If the flow was reset
// meanwhile it keeps the state the reset chose.
func (f *Flow) release(epoch uint64, err error, mode domain.GenerationMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if !f.currentLocked(epoch) {
		return
	}
	f.state = domain.FlowHome
	f.lastErr = domain.UserMessage(err, mode)
	f.broadcastLocked()
}

func (f *Flow) reject(err error, mode domain.GenerationMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == domain.FlowHome {
		f.lastErr = domain.UserMessage(err, mode)
		f.broadcastLocked()
	}
}

// currentLocked reports whether the generation started at epoch still owns the flow.
func (f *Flow) currentLocked(epoch uint64) bool {
	return !f.closed && epoch == f.epoch && f.state == domain.FlowGenerating
}

func discarded() error {
	return fmt.Errorf("%w: %w", domain.ErrInvalidTransition, domain.ErrGenerationDiscarded)
}

func (f *Flow) runGeneration(ctx context.Context, epoch uint64, req domain.GenerationRequest) error {
	f.mu.Lock()
	if !f.currentLocked(epoch) {
		f.inFlight = false
		f.mu.Unlock()
		return discarded()
	}
	f.mu.Unlock()

	quiz, err := f.generator.Generate(ctx, req)
	if err == nil {
		quiz.Difficulty = req.Difficulty
		err = quiz.Validate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if !f.currentLocked(epoch) {
		// The learner reset the flow while the call was pending.
		log.Printf("discarding stale generation for %s (err=%v)", f.learnerID, err)
		return discarded()
	}

	if err != nil {
		log.Printf("quiz generation for %s failed: %v", f.learnerID, err)
		f.state = domain.FlowHome
		f.lastErr = domain.UserMessage(err, req.Mode())
		f.broadcastLocked()
		if errors.Is(err, domain.ErrGenerationFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	f.quiz = &quiz
	f.result = nil
	f.generated++
	f.startSessionLocked()
	return nil
}

func (f *Flow) startSessionLocked() {
	opts := append([]SessionOption{}, f.cfg.SessionOptions...)
	opts = append(opts, WithTickHook(f.onTick))
	f.session = NewSession(f.quiz, opts...)
	f.state = domain.FlowSession
	f.broadcastLocked()
}

func (f *Flow) onTick(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == s {
		f.broadcastLocked()
	}
}

// Select forwards to the live session. Out-of-state calls leave it unchanged.
func (f *Flow) Select(index, optionIdx int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.liveSessionLocked()
	if err != nil {
		return err
	}
	if err := s.Select(index, optionIdx); err != nil {
		return err
	}
	f.broadcastLocked()
	return nil
}

// Confirm locks the current question of the live session.
func (f *Flow) Confirm(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.liveSessionLocked()
	if err != nil {
		return err
	}
	if err := s.Confirm(index); err != nil {
		return err
	}
	f.broadcastLocked()
	return nil
}

// Advance moves the session forward; the terminal advance enters Result.
func (f *Flow) Advance(index int) (*domain.QuizResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.liveSessionLocked()
	if err != nil {
		return nil, err
	}
	result, err := s.Advance(index)
	if err != nil {
		return nil, err
	}
	if result != nil {
		f.result = result
		f.session = nil
		f.state = domain.FlowResult
	}
	f.broadcastLocked()
	return result, nil
}

// Exit abandons the live session and returns Home, discarding the quiz.
func (f *Flow) Exit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != domain.FlowSession {
		return fmt.Errorf("%w: no session to exit", domain.ErrInvalidTransition)
	}
	f.resetLocked()
	f.broadcastLocked()
	return nil
}

// Retake starts a fresh session over the same quiz from Result.
func (f *Flow) Retake() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != domain.FlowResult || f.quiz == nil {
		return fmt.Errorf("%w: retake requires a result", domain.ErrInvalidTransition)
	}
	f.result = nil
	f.startSessionLocked()
	return nil
}

// NewPractice discards the quiz, any session and result and returns Home.
// A pending generation is orphaned and its answer dropped.
func (f *Flow) NewPractice() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.lastErr = ""
	f.broadcastLocked()
}

func (f *Flow) resetLocked() {
	if f.session != nil {
		f.session.Exit()
	}
	f.session = nil
	f.quiz = nil
	f.result = nil
	f.state = domain.FlowHome
	f.epoch++
}

// ClearError dismisses the last user-facing error.
func (f *Flow) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastErr = ""
	f.broadcastLocked()
}

// Export encodes the current result. Only valid on the Result screen.
func (f *Flow) Export(format export.Format) ([]byte, string, error) {
	f.mu.Lock()
	if f.state != domain.FlowResult || f.quiz == nil || f.result == nil {
		f.mu.Unlock()
		return nil, "", fmt.Errorf("%w: nothing to export", domain.ErrInvalidTransition)
	}
	quiz, result := *f.quiz, *f.result
	at := f.now()
	f.mu.Unlock()

	data, err := export.Encode(format, quiz, result)
	if err != nil {
		return nil, "", err
	}
	return data, export.FileName(format, at), nil
}

// Snapshot returns the current flow view.
func (f *Flow) Snapshot() domain.FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// State returns the current screen.
func (f *Flow) State() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close stops any session timer and closes all subscriptions.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.resetLocked()
	f.closed = true
	for ch := range f.subscribers {
		delete(f.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *Flow) Subscribe() (<-chan domain.FlowSnapshot, func()) {
	ch := make(chan domain.FlowSnapshot, 8)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subscribers[ch] = struct{}{}
	ch <- f.snapshotLocked()
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Flow) liveSessionLocked() (*Session, error) {
	if f.state != domain.FlowSession || f.session == nil {
		return nil, fmt.Errorf("%w: no live session", domain.ErrInvalidSelection)
	}
	return f.session, nil
}

func (f *Flow) broadcastLocked() {
	snap := f.snapshotLocked()
	for ch := range f.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest update so it always sees the latest.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (f *Flow) snapshotLocked() domain.FlowSnapshot {
	snap := domain.FlowSnapshot{
		LearnerID: f.learnerID,
		State:     f.state,
		Quiz:      f.quiz,
		Result:    f.result,
		Error:     f.lastErr,
	}
	if f.session != nil {
		view := f.session.View()
		snap.Session = &view
	}
	if f.result != nil && f.quiz != nil {
		summary := Summarize(*f.quiz, *f.result)
		snap.Summary = &summary
	}
	return snap
}

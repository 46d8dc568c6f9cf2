package app

import (
	"context"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/export"
)

// FlowRepository abstracts where live learner flows are tracked (in-memory, Redis, etc).
// GetOrCreate takes a reference on the flow; Release drops one and reports the
// flow once the last reference is gone.
type FlowRepository interface {
	GetOrCreate(learnerID string, create func(learnerID string) *Flow) *Flow
	Get(learnerID string) (*Flow, bool)
	Release(learnerID string) (*Flow, bool)
	Touch(learnerID string)
}

// QuizService contains the learner-facing use cases.
type QuizService struct {
	flows     FlowRepository
	generator Generator
	capture   CaptureProvider
	cfg       FlowConfig
}

func NewQuizService(flows FlowRepository, generator Generator, capture CaptureProvider, cfg FlowConfig) *QuizService {
	return &QuizService{flows: flows, generator: generator, capture: capture, cfg: cfg}
}

// NewFlow is exported for infrastructure layers and drivers that own a flow directly.
func (s *QuizService) NewFlow(learnerID string) *Flow {
	return NewFlow(learnerID, s.generator, s.capture, s.cfg)
}

// Open returns the learner's live flow, creating one on the Home screen if needed.
// Every Open must be paired with a Close.
func (s *QuizService) Open(_ context.Context, learnerID string) *Flow {
	return s.flows.GetOrCreate(learnerID, s.NewFlow)
}

// Flow looks up a live flow.
func (s *QuizService) Flow(_ context.Context, learnerID string) (*Flow, error) {
	flow, ok := s.flows.Get(learnerID)
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return flow, nil
}

// Close releases one Open. The flow is discarded with the last release; progress is not kept.
func (s *QuizService) Close(_ context.Context, learnerID string) {
	flow, last := s.flows.Release(learnerID)
	if !last {
		return
	}
	flow.Close()
}

// Touch marks the learner's flow as active.
func (s *QuizService) Touch(_ context.Context, learnerID string) {
	s.flows.Touch(learnerID)
}

// Export encodes the learner's current result.
func (s *QuizService) Export(ctx context.Context, learnerID string, format export.Format) ([]byte, string, error) {
	flow, err := s.Flow(ctx, learnerID)
	if err != nil {
		return nil, "", err
	}
	return flow.Export(format)
}

package memory

import (
	"sync"

	"notes-quiz-service/internal/app"
)

// FlowStore is an in-memory implementation of app.FlowRepository.
// Each GetOrCreate takes a reference; the flow is dropped when the last is released.
type FlowStore struct {
	mu    sync.RWMutex
	flows map[string]*flowEntry
}

type flowEntry struct {
	flow *app.Flow
	refs int
}

func NewFlowStore() *FlowStore {
	return &FlowStore{
		flows: make(map[string]*flowEntry),
	}
}

func (s *FlowStore) GetOrCreate(learnerID string, create func(string) *app.Flow) *app.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.flows[learnerID]
	if !ok {
		entry = &flowEntry{flow: create(learnerID)}
		s.flows[learnerID] = entry
	}
	entry.refs++
	return entry.flow
}

func (s *FlowStore) Get(learnerID string) (*app.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.flows[learnerID]
	if !ok {
		return nil, false
	}
	return entry.flow, true
}

// Release drops one reference and returns the flow once nobody holds it.
func (s *FlowStore) Release(learnerID string) (*app.Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.flows[learnerID]
	if !ok {
		return nil, false
	}
	entry.refs--
	if entry.refs > 0 {
		return nil, false
	}
	delete(s.flows, learnerID)
	return entry.flow, true
}

// Touch is a no-op; in-process flows do not expire.
func (s *FlowStore) Touch(string) {}

// Len reports how many learner flows are live.
func (s *FlowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}

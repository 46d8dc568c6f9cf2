package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"notes-quiz-service/internal/app"
)

// FlowStore is a Redis-aware implementation of app.FlowRepository.
// Notes:
//   - Flows hold a running timer and live subscriptions, so they stay in a
//     local map; only this instance can serve a learner's connection.
//   - Redis records which learners are live, with a TTL refreshed on learner
//     activity so a crashed instance does not leave markers behind.
//   - Each GetOrCreate takes a reference; the flow is dropped on the last Release.
type FlowStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	flows map[string]*flowEntry
}

type flowEntry struct {
	flow *app.Flow
	refs int
}

func NewFlowStore(client *redis.Client, ttl time.Duration) *FlowStore {
	return &FlowStore{
		client: client,
		ttl:    ttl,
		flows:  make(map[string]*flowEntry),
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
	s.mark(learnerID)
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
	if err := s.client.Del(context.Background(), s.key(learnerID)).Err(); err != nil {
		log.Printf("clear flow marker %s: %v", learnerID, err)
	}
	return entry.flow, true
}

// Touch refreshes the liveness marker of a live flow.
func (s *FlowStore) Touch(learnerID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.flows[learnerID]; ok {
		s.mark(learnerID)
	}
}

func (s *FlowStore) mark(learnerID string) {
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(learnerID), "1", s.ttl).Err(); err != nil {
		log.Printf("mark flow %s: %v", learnerID, err)
	}
}

func (s *FlowStore) key(learnerID string) string {
	return "quiz:flow:" + learnerID
}

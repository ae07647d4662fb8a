package reputation

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.Mutex
	workers map[string]Reputation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workers: map[string]Reputation{}}
}

func (s *MemoryStore) Approve(_ context.Context, worker string, amount int64) (Reputation, error) {
	return s.increment(worker, amount, 0), nil
}

func (s *MemoryStore) Reject(_ context.Context, worker string, amount int64) (Reputation, error) {
	return s.increment(worker, 0, amount), nil
}

func (s *MemoryStore) Get(_ context.Context, worker string) (Reputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.workers[worker]
	if !ok {
		return Reputation{Worker: worker}, nil
	}
	return r, nil
}

// Set overwrites the counters of a worker.
func (s *MemoryStore) Set(r Reputation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[r.Worker] = r
}

func (s *MemoryStore) increment(worker string, approved, rejected int64) Reputation {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.workers[worker]
	r.Worker = worker
	r.Approved += approved
	r.Rejected += rejected
	s.workers[worker] = r
	return r
}

package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

type MemoryStore struct {
	mu         sync.RWMutex
	configs    map[plasma.RunID]plasma.Configuration
	rsq        map[plasma.RunID][]float64
	histograms map[plasma.RunID]*metrics.Histogram
	sessions   map[plasma.RunID][]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs:    make(map[plasma.RunID]plasma.Configuration),
		rsq:        make(map[plasma.RunID][]float64),
		histograms: make(map[plasma.RunID]*metrics.Histogram),
		sessions:   make(map[plasma.RunID][]Session),
	}
}

// Init is a no-op; the store is usable as soon as it is constructed.
func (s *MemoryStore) Init(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id plasma.RunID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.configs[id]
	return ok, nil
}

func (s *MemoryStore) Reset(_ context.Context, id plasma.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.configs, id)
	delete(s.rsq, id)
	delete(s.histograms, id)
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) SaveConfiguration(_ context.Context, id plasma.RunID, c plasma.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[id] = c.Clone()
	return nil
}

func (s *MemoryStore) LoadConfiguration(_ context.Context, id plasma.RunID) (plasma.Configuration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.configs[id]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (s *MemoryStore) AppendRSq(_ context.Context, id plasma.RunID, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rsq[id] = append(s.rsq[id], values...)
	return nil
}

func (s *MemoryStore) LoadRSq(_ context.Context, id plasma.RunID) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.rsq[id]))
	copy(out, s.rsq[id])
	return out, nil
}

func (s *MemoryStore) SaveHistogram(_ context.Context, id plasma.RunID, h *metrics.Histogram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.histograms[id] = cloneHistogram(h)
	return nil
}

func (s *MemoryStore) LoadHistogram(_ context.Context, id plasma.RunID) (*metrics.Histogram, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histograms[id]
	if !ok {
		return nil, false, nil
	}
	return cloneHistogram(h), true, nil
}

func (s *MemoryStore) AppendSession(_ context.Context, id plasma.RunID, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = append(s.sessions[id], session)
	return nil
}

func (s *MemoryStore) Sessions(_ context.Context, id plasma.RunID) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, len(s.sessions[id]))
	copy(out, s.sessions[id])
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]plasma.RunID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]plasma.RunID, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

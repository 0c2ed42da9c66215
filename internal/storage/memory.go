package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"amari/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	computations map[string]model.Computation
	cayley       map[string]model.CayleyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.computations = make(map[string]model.Computation)
	s.cayley = make(map[string]model.CayleyRecord)
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.computations = make(map[string]model.Computation)
	s.cayley = make(map[string]model.CayleyRecord)
	return nil
}

func (s *MemoryStore) SaveComputation(_ context.Context, c model.Computation) error {
	if err := verifyComputation(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.computations[c.Name] = cloneComputation(c)
	return nil
}

func (s *MemoryStore) GetComputation(_ context.Context, name string) (model.Computation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.Computation{}, false, ErrNotInitialized
	}
	c, ok := s.computations[name]
	if !ok {
		return model.Computation{}, false, nil
	}
	return cloneComputation(c), true, nil
}

func (s *MemoryStore) ListComputations(_ context.Context) ([]model.ComputationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.ComputationSummary, 0, len(s.computations))
	for _, c := range s.computations {
		out = append(out, cloneComputation(c).Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteComputation(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, ErrNotInitialized
	}
	_, ok := s.computations[name]
	delete(s.computations, name)
	return ok, nil
}

func (s *MemoryStore) SaveCayleyTable(_ context.Context, r model.CayleyRecord) error {
	if err := verifyCayley(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	r.Table = append(json.RawMessage(nil), r.Table...)
	s.cayley[r.ID] = r
	return nil
}

func (s *MemoryStore) GetCayleyTable(_ context.Context, id string) (model.CayleyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.CayleyRecord{}, false, ErrNotInitialized
	}
	r, ok := s.cayley[id]
	if !ok {
		return model.CayleyRecord{}, false, nil
	}
	r.Table = append(json.RawMessage(nil), r.Table...)
	return r, true, nil
}

func (s *MemoryStore) ListCayleyTables(_ context.Context) ([]model.CayleySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.CayleySummary, 0, len(s.cayley))
	for _, r := range s.cayley {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteCayleyTables(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return 0, ErrNotInitialized
	}
	if id == "" {
		n := len(s.cayley)
		s.cayley = make(map[string]model.CayleyRecord)
		return n, nil
	}
	if _, ok := s.cayley[id]; !ok {
		return 0, nil
	}
	delete(s.cayley, id)
	return 1, nil
}

func cloneComputation(c model.Computation) model.Computation {
	c.Payload = append(json.RawMessage(nil), c.Payload...)
	if c.Metadata != nil {
		meta := make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			meta[k] = v
		}
		c.Metadata = meta
	}
	return c
}

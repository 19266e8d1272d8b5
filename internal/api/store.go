package api

import "sync"

// GenerationStore keeps completed generations for later retrieval, so a
// client can fetch tokens again (or hand the id to another tool) without
// re-running the sampler.
type GenerationStore struct {
	mu          sync.Mutex
	generations map[string]GenerateResponse
}

func NewGenerationStore() *GenerationStore {
	return &GenerationStore{
		generations: make(map[string]GenerateResponse),
	}
}

func (s *GenerationStore) Put(resp GenerateResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[resp.ID] = resp
}

func (s *GenerationStore) Get(id string) (GenerateResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.generations[id]
	return resp, ok
}

func (s *GenerationStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.generations[id]; !ok {
		return false
	}
	delete(s.generations, id)
	return true
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps deltas in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	wavelets map[string][]Delta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wavelets: make(map[string][]Delta)}
}

func (s *MemoryStore) Append(ctx context.Context, wavelet string, d Delta) error {
	if err := CheckWaveletID(wavelet); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.wavelets[wavelet]
	if d.Version != len(history)+1 {
		return fmt.Errorf("%w: %s is at version %d, got delta %d", ErrVersionConflict, wavelet, len(history), d.Version)
	}
	s.wavelets[wavelet] = append(history, d)
	return nil
}

func (s *MemoryStore) Deltas(ctx context.Context, wavelet string, from int) ([]Delta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.wavelets[wavelet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, wavelet)
	}
	if from < 0 {
		from = 0
	}
	if from >= len(history) {
		return nil, nil
	}
	return append([]Delta(nil), history[from:]...), nil
}

func (s *MemoryStore) Wavelets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.wavelets))
	for id := range s.wavelets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

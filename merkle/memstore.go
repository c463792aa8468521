package merkle

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// MemStore is an in-memory Store.
type MemStore struct {
	mu        sync.Mutex
	revealed  map[ethcommon.Hash]struct{}
	validated map[ethcommon.Hash]Validation
}

func NewMemStore() *MemStore {
	return &MemStore{
		revealed:  make(map[ethcommon.Hash]struct{}),
		validated: make(map[ethcommon.Hash]Validation),
	}
}

func (s *MemStore) IsRevealed(revealKey ethcommon.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.revealed[revealKey]
	return ok, nil
}

func (s *MemStore) Commit(revealKey, validationKey ethcommon.Hash, v Validation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revealed[revealKey]; ok {
		return false, nil
	}
	s.revealed[revealKey] = struct{}{}
	s.validated[validationKey] = v
	return true, nil
}

func (s *MemStore) LastValidated(validationKey ethcommon.Hash) (*Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.validated[validationKey]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

package tests

import (
	"context"
	"sync"

	"github.com/prior-it/cepcache/core"
)

// MemoryStore is an in-memory core.AddressStore with the same uniqueness guarantees as the postgres store.
type MemoryStore struct {
	mu        sync.Mutex
	addresses map[string]core.Address
}

var _ core.AddressStore = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{addresses: make(map[string]core.Address)}
}

func clone(address core.Address) core.Address {
	return *address.Clone()
}

// FindByCode implements core.AddressStore.
func (s *MemoryStore) FindByCode(_ context.Context, code string) (*core.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	address, ok := s.addresses[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	address = clone(address)
	return &address, nil
}

// FindAll implements core.AddressStore.
func (s *MemoryStore) FindAll(_ context.Context, filter core.AddressFilter) ([]core.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []core.Address{}
	for _, address := range s.addresses {
		if len(list) == core.MaxListResults {
			break
		}
		if len(filter.StateCode) > 0 && address.StateCode != filter.StateCode {
			continue
		}
		list = append(list, clone(address))
	}
	return list, nil
}

// Insert implements core.AddressStore.
func (s *MemoryStore) Insert(_ context.Context, address core.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[address.PostalCode]; ok {
		return core.ErrDuplicateKey
	}
	s.addresses[address.PostalCode] = clone(address)
	return nil
}

// ReplaceByCode implements core.AddressStore.
func (s *MemoryStore) ReplaceByCode(_ context.Context, code string, address core.Address) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[code]; !ok {
		return 0, nil
	}
	if address.PostalCode != code {
		if _, ok := s.addresses[address.PostalCode]; ok {
			return 0, core.ErrDuplicateKey
		}
		delete(s.addresses, code)
	}
	s.addresses[address.PostalCode] = clone(address)
	return 1, nil
}

// DeleteByCode implements core.AddressStore.
func (s *MemoryStore) DeleteByCode(_ context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[code]; !ok {
		return 0, nil
	}
	delete(s.addresses, code)
	return 1, nil
}

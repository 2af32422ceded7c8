package memory

import (
	"context"
	"sort"
	"sync"

	"vocab-tiers-service/internal/domain"
)

// LedgerStore is an in-memory implementation of app.LedgerRepository.
// Updates for one user are serialized by a per-user lock; different users
// never wait on each other.
type LedgerStore struct {
	mu      sync.RWMutex
	ledgers map[string]domain.Ledger
	locks   map[string]*sync.Mutex
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		ledgers: make(map[string]domain.Ledger),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *LedgerStore) Load(_ context.Context, userID string) (domain.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.ledgers[userID]; ok {
		return l.Clone(), nil
	}
	return domain.NewLedger(userID), nil
}

func (s *LedgerStore) Update(ctx context.Context, userID string, fn func(domain.Ledger) (domain.Ledger, error)) (domain.Ledger, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Load(ctx, userID)
	if err != nil {
		return domain.Ledger{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	next.UserID = userID

	s.mu.Lock()
	s.ledgers[userID] = next.Clone()
	s.mu.Unlock()
	return next, nil
}

func (s *LedgerStore) UserIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *LedgerStore) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by the CLI without a database and by tests.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	history  map[string][]Transaction
	nextID   int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		history:  make(map[string][]Transaction),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, acc Account) (Account, error) {
	acc.ID = strings.TrimSpace(acc.ID)
	if acc.ID == "" {
		return Account{}, fmt.Errorf("%w: empty id", ErrAccountNotFound)
	}
	if acc.Balance < 0 {
		return Account{}, ErrInvalidAmount
	}
	if acc.Type == "" {
		acc.Type = DefaultAccountType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, acc.ID)
	}
	now := s.now().UTC()
	acc.Balance = roundCents(acc.Balance)
	acc.CreatedAt = now
	acc.UpdatedAt = now
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *MemoryStore) Account(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return acc, nil
}

func (s *MemoryStore) Deposit(_ context.Context, id string, amount float64, description string) (Account, error) {
	if !validAmount(amount) {
		return Account{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(id, KindDeposit, amount, description)
}

func (s *MemoryStore) Withdraw(_ context.Context, id string, amount float64, description string) (Account, error) {
	if !validAmount(amount) {
		return Account{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(id, KindWithdrawal, amount, description)
}

func (s *MemoryStore) applyLocked(id string, kind TransactionKind, amount float64, description string) (Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	amount = roundCents(amount)
	switch kind {
	case KindDeposit:
		acc.Balance = roundCents(acc.Balance + amount)
	case KindWithdrawal:
		if acc.Balance < amount {
			return Account{}, &InsufficientFundsError{Balance: acc.Balance}
		}
		acc.Balance = roundCents(acc.Balance - amount)
	}

	now := s.now().UTC()
	acc.UpdatedAt = now
	s.accounts[id] = acc

	s.nextID++
	s.history[id] = append(s.history[id], Transaction{
		ID:           s.nextID,
		AccountID:    id,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: acc.Balance,
		Description:  description,
		CreatedAt:    now,
	})
	return acc, nil
}

// Transactions returns the newest transactions first.
func (s *MemoryStore) Transactions(_ context.Context, id string, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if limit <= 0 {
		limit = DefaultHistorySize
	}

	all := s.history[id]
	out := make([]Transaction, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

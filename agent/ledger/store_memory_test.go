package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func seededStore(t *testing.T, balance float64) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if _, err := s.CreateAccount(context.Background(), Account{ID: DefaultAccountID, Holder: DefaultHolderName, Balance: balance}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return s
}

func TestMemoryStoreDepositWithdraw(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seededStore(t, 1000)

	acc, err := s.Deposit(ctx, DefaultAccountID, 50, "deposit")
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if acc.Balance != 1050 {
		t.Fatalf("balance = %v, want 1050", acc.Balance)
	}

	acc, err = s.Withdraw(ctx, DefaultAccountID, 20.25, "withdraw")
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if acc.Balance != 1029.75 {
		t.Fatalf("balance = %v, want 1029.75", acc.Balance)
	}

	txs, err := s.Transactions(ctx, DefaultAccountID, 0)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(txs) != 2 || txs[0].Kind != KindWithdrawal || txs[1].Kind != KindDeposit {
		t.Fatalf("expected newest first, got %#v", txs)
	}
	if txs[0].BalanceAfter != 1029.75 {
		t.Fatalf("balance_after = %v", txs[0].BalanceAfter)
	}
}

func TestMemoryStoreInsufficientFunds(t *testing.T) {
	t.Parallel()

	s := seededStore(t, 10)
	_, err := s.Withdraw(context.Background(), DefaultAccountID, 50, "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) || insufficient.Balance != 10 {
		t.Fatalf("expected balance in error, got %#v", err)
	}

	acc, _ := s.Account(context.Background(), DefaultAccountID)
	if acc.Balance != 10 {
		t.Fatalf("failed withdrawal must not change balance, got %v", acc.Balance)
	}
}

func TestMemoryStoreErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seededStore(t, 0)

	if _, err := s.Deposit(ctx, DefaultAccountID, -5, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := s.Deposit(ctx, "missing", 5, ""); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := s.CreateAccount(ctx, Account{ID: DefaultAccountID}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := s.Transactions(ctx, "missing", 5); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStoreHistoryLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seededStore(t, 0)
	for i := 0; i < 8; i++ {
		if _, err := s.Deposit(ctx, DefaultAccountID, 1, ""); err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
	}
	txs, err := s.Transactions(ctx, DefaultAccountID, DefaultHistorySize)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(txs) != DefaultHistorySize {
		t.Fatalf("expected %d transactions, got %d", DefaultHistorySize, len(txs))
	}
	if txs[0].BalanceAfter != 8 {
		t.Fatalf("newest transaction first, got balance_after %v", txs[0].BalanceAfter)
	}
}

func TestMemoryStoreConcurrentDeposits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seededStore(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Deposit(ctx, DefaultAccountID, 2, ""); err != nil {
				t.Errorf("Deposit() error = %v", err)
			}
		}()
	}
	wg.Wait()

	acc, _ := s.Account(ctx, DefaultAccountID)
	if acc.Balance != 100 {
		t.Fatalf("balance = %v, want 100", acc.Balance)
	}
}

func TestConfigOpenWithoutDSNUsesMemory(t *testing.T) {
	t.Parallel()

	store, closeFn, err := Config{}.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer closeFn()
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}

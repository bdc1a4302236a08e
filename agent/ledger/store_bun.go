package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN            string        `envconfig:"DSN" split_words:"true"`
	AccountID      string        `split_words:"true" default:"ACC001"`
	HolderName     string        `split_words:"true" default:"Demo User"`
	InitialBalance float64       `split_words:"true" default:"1000"`
	Timeout        time.Duration `split_words:"true" default:"5s"`
}

// Open returns the PostgreSQL store when a DSN is configured and the in-memory
// store otherwise.
func (c Config) Open(ctx context.Context) (Store, func() error, error) {
	dsn := strings.TrimSpace(c.DSN)
	if dsn == "" {
		return NewMemoryStore(), func() error { return nil }, nil
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(c.Timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := NewBunStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*Transaction)(nil)).
		IfNotExists().
		ForeignKey(`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*Transaction)(nil)).
		Index("transactions_account_created_idx").
		IfNotExists().
		Column("account_id", "created_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("create transactions index: %w", err)
	}
	return nil
}

func (s *BunStore) CreateAccount(ctx context.Context, acc Account) (Account, error) {
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
	now := time.Now().UTC()
	acc.Balance = roundCents(acc.Balance)
	acc.CreatedAt = now
	acc.UpdatedAt = now

	if _, err := s.db.NewInsert().Model(&acc).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, acc.ID)
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return acc, nil
}

func (s *BunStore) Account(ctx context.Context, id string) (Account, error) {
	var acc Account
	err := s.db.NewSelect().Model(&acc).Where("a.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if err != nil {
		return Account{}, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}

func (s *BunStore) Deposit(ctx context.Context, id string, amount float64, description string) (Account, error) {
	return s.apply(ctx, id, KindDeposit, amount, description)
}

func (s *BunStore) Withdraw(ctx context.Context, id string, amount float64, description string) (Account, error) {
	return s.apply(ctx, id, KindWithdrawal, amount, description)
}

func (s *BunStore) apply(ctx context.Context, id string, kind TransactionKind, amount float64, description string) (Account, error) {
	if !validAmount(amount) {
		return Account{}, ErrInvalidAmount
	}
	amount = roundCents(amount)

	var acc Account
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&acc).
			Where("a.id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		switch kind {
		case KindDeposit:
			acc.Balance = roundCents(acc.Balance + amount)
		case KindWithdrawal:
			if acc.Balance < amount {
				return &InsufficientFundsError{Balance: acc.Balance}
			}
			acc.Balance = roundCents(acc.Balance - amount)
		}
		acc.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().
			Model(&acc).
			Column("balance", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry := &Transaction{
			AccountID:    id,
			Kind:         kind,
			Amount:       amount,
			BalanceAfter: acc.Balance,
			Description:  description,
			CreatedAt:    acc.UpdatedAt,
		}
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (s *BunStore) Transactions(ctx context.Context, id string, limit int) ([]Transaction, error) {
	if _, err := s.Account(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistorySize
	}

	var txs []Transaction
	if err := s.db.NewSelect().
		Model(&txs).
		Where("t.account_id = ?", id).
		OrderExpr("t.created_at DESC, t.id DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return txs, nil
}

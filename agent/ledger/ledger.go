package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

const (
	DefaultAccountID   = "ACC001"
	DefaultHolderName  = "Demo User"
	DefaultAccountType = "checking"
	DefaultHistorySize = 5
)

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID        string    `bun:"id,pk" json:"id"`
	Holder    string    `bun:"holder,notnull" json:"holder"`
	Type      string    `bun:"type,notnull" json:"type"`
	Balance   float64   `bun:"balance,type:numeric(14,2),notnull" json:"balance"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	AccountID    string          `bun:"account_id,notnull" json:"account_id"`
	Kind         TransactionKind `bun:"kind,notnull" json:"kind"`
	Amount       float64         `bun:"amount,type:numeric(14,2),notnull" json:"amount"`
	BalanceAfter float64         `bun:"balance_after,type:numeric(14,2),notnull" json:"balance_after"`
	Description  string          `bun:"description" json:"description,omitempty"`
	CreatedAt    time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Store owns account balances. Deposit and Withdraw are atomic: the balance change and
// its transaction row are written together or not at all.
type Store interface {
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	Account(ctx context.Context, id string) (Account, error)
	Deposit(ctx context.Context, id string, amount float64, description string) (Account, error)
	Withdraw(ctx context.Context, id string, amount float64, description string) (Account, error)
	Transactions(ctx context.Context, id string, limit int) ([]Transaction, error)
}

// InsufficientFundsError carries the balance at the time of the failed withdrawal.
type InsufficientFundsError struct {
	Balance float64
}

func (e *InsufficientFundsError) Error() string {
	return ErrInsufficientFunds.Error()
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// roundCents keeps float balances on whole cents.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	ledgerx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/ledger"
)

const (
	ToolDeposit        = "ledger.deposit"
	ToolWithdraw       = "ledger.withdraw"
	ToolBalance        = "ledger.balance"
	ToolAccountDetails = "ledger.account_details"
)

// ToolResult is what a tool hands back. Error is set for bad calls (unknown tool,
// malformed arguments); ledger failures are returned as Go errors instead.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type BalanceOutput struct {
	AccountID string  `json:"account_id"`
	Balance   float64 `json:"balance"`
}

type TransferOutput struct {
	AccountID string  `json:"account_id"`
	Amount    float64 `json:"amount"`
	Balance   float64 `json:"balance"`
}

type AccountDetailsOutput struct {
	Account      ledgerx.Account       `json:"account"`
	Transactions []ledgerx.Transaction `json:"transactions"`
}

type Executor func(ctx context.Context, tool string, args map[string]any) (ToolResult, error)

// BuildForLedger returns the ledger tool descriptions and an executor bound to one account.
func BuildForLedger(store ledgerx.Store, accountID string) ([]*schema.ToolInfo, Executor) {
	infos := ledgerInfos()
	return infos, NewExecutor(store, accountID, infos)
}

// ForCategory names the ledger tool that serves a category.
func ForCategory(c contractx.Category) (string, bool) {
	switch c {
	case contractx.CategoryDeposit:
		return ToolDeposit, true
	case contractx.CategoryWithdrawal:
		return ToolWithdraw, true
	case contractx.CategoryBalance:
		return ToolBalance, true
	case contractx.CategoryAccountDetails:
		return ToolAccountDetails, true
	default:
		return "", false
	}
}

func NewExecutor(store ledgerx.Store, accountID string, infos []*schema.ToolInfo) Executor {
	allowed := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if info != nil && strings.TrimSpace(info.Name) != "" {
			allowed[info.Name] = struct{}{}
		}
	}

	return func(ctx context.Context, tool string, args map[string]any) (ToolResult, error) {
		if _, ok := allowed[tool]; !ok {
			return ToolResult{
				Tool:  tool,
				Error: fmt.Sprintf("tool=%s is unavailable", tool),
			}, nil
		}

		switch tool {
		case ToolDeposit, ToolWithdraw:
			amount, err := amountArg(args)
			if err != nil {
				return ToolResult{Tool: tool, Error: err.Error()}, nil
			}
			op := store.Deposit
			description := "User deposit"
			if tool == ToolWithdraw {
				op = store.Withdraw
				description = "User withdrawal"
			}
			acc, err := op(ctx, accountID, amount, description)
			if err != nil {
				return ToolResult{Tool: tool}, err
			}
			return ToolResult{
				Tool:   tool,
				Result: TransferOutput{AccountID: acc.ID, Amount: amount, Balance: acc.Balance},
			}, nil

		case ToolBalance:
			acc, err := store.Account(ctx, accountID)
			if err != nil {
				return ToolResult{Tool: tool}, err
			}
			return ToolResult{
				Tool:   tool,
				Result: BalanceOutput{AccountID: acc.ID, Balance: acc.Balance},
			}, nil

		case ToolAccountDetails:
			acc, err := store.Account(ctx, accountID)
			if err != nil {
				return ToolResult{Tool: tool}, err
			}
			txs, err := store.Transactions(ctx, accountID, limitArg(args))
			if err != nil {
				return ToolResult{Tool: tool}, err
			}
			return ToolResult{
				Tool:   tool,
				Result: AccountDetailsOutput{Account: acc, Transactions: txs},
			}, nil
		}

		return ToolResult{Tool: tool, Error: fmt.Sprintf("tool=%s has no handler", tool)}, nil
	}
}

func ledgerInfos() []*schema.ToolInfo {
	amountParam := map[string]*schema.ParameterInfo{
		"amount": {Type: schema.Number, Desc: "Amount in dollars, greater than zero", Required: true},
	}
	return []*schema.ToolInfo{
		{
			Name:        ToolDeposit,
			Desc:        "Deposit money into the customer's account.",
			ParamsOneOf: schema.NewParamsOneOfByParams(amountParam),
		},
		{
			Name:        ToolWithdraw,
			Desc:        "Withdraw money from the customer's account if the balance allows it.",
			ParamsOneOf: schema.NewParamsOneOfByParams(amountParam),
		},
		{
			Name:        ToolBalance,
			Desc:        "Return the current account balance.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: ToolAccountDetails,
			Desc: "Return account id, holder, type, balance and recent transactions.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"limit": {Type: schema.Integer, Desc: "How many recent transactions to include"},
			}),
		},
	}
}

func amountArg(args map[string]any) (float64, error) {
	raw, ok := args["amount"]
	if !ok {
		return 0, fmt.Errorf("amount is required")
	}

	var amount float64
	switch v := raw.(type) {
	case float64:
		amount = v
	case int:
		amount = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("amount must be a number")
		}
		amount = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(v), "$"), 64)
		if err != nil {
			return 0, fmt.Errorf("amount must be a number")
		}
		amount = f
	default:
		return 0, fmt.Errorf("amount must be a number")
	}

	if amount <= 0 {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	return amount, nil
}

func limitArg(args map[string]any) int {
	switch v := args["limit"].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return ledgerx.DefaultHistorySize
}

package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	ledgerx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/ledger"
	toolx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/tool"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

const balanceUnavailableText = "Sorry, I couldn't retrieve your balance at the moment."

// LedgerAgent serves deposit, withdrawal, balance and account details requests
// through the ledger tool catalog. It does not call a model: the classifier has
// already extracted the category and amount.
type LedgerAgent struct {
	tools   []*schema.ToolInfo
	execute toolx.Executor
}

func NewLedgerAgent(store ledgerx.Store, accountID string) (*LedgerAgent, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: ledger store is required", contractx.ErrConfiguration)
	}
	if strings.TrimSpace(accountID) == "" {
		accountID = ledgerx.DefaultAccountID
	}
	tools, execute := toolx.BuildForLedger(store, accountID)
	return &LedgerAgent{tools: tools, execute: execute}, nil
}

// Tools lists the ledger operations the agent can perform.
func (a *LedgerAgent) Tools() []*schema.ToolInfo {
	return a.tools
}

func (a *LedgerAgent) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	tool, ok := toolx.ForCategory(req.Category)
	if !ok {
		return contractx.AgentResult{}, fmt.Errorf("%w: ledger agent cannot serve category=%s", contractx.ErrAgentInvocation, req.Category)
	}

	if req.Category.NeedsAmount() && req.Amount <= 0 {
		return a.result(req, "Please specify the amount to "+amountVerb(req.Category)+"."), nil
	}

	res, err := a.execute(ctx, tool, map[string]any{"amount": req.Amount})
	if err != nil {
		return a.failure(req, tool, err)
	}
	if res.Error != "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: %s", contractx.ErrAgentInvocation, res.Error)
	}

	switch out := res.Result.(type) {
	case toolx.TransferOutput:
		if req.Category == contractx.CategoryDeposit {
			return a.result(req, fmt.Sprintf("$%.2f successfully deposited.", out.Amount)), nil
		}
		return a.result(req, fmt.Sprintf("$%.2f successfully withdrawn.", out.Amount)), nil
	case toolx.BalanceOutput:
		return a.result(req, fmt.Sprintf("Your current account balance is $%.2f.", out.Balance)), nil
	case toolx.AccountDetailsOutput:
		return a.result(req, formatAccountDetails(out)), nil
	}
	return contractx.AgentResult{}, fmt.Errorf("%w: unexpected result from tool=%s", contractx.ErrAgentInvocation, tool)
}

func (a *LedgerAgent) failure(req contractx.AgentRequest, tool string, err error) (contractx.AgentResult, error) {
	var insufficient *ledgerx.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		return a.result(req, fmt.Sprintf("Insufficient funds. Current balance: $%.2f", insufficient.Balance)), nil
	case tool == toolx.ToolBalance:
		logx.Warn().Err(err).Str("turn_id", req.TurnID).Msg("balance lookup failed")
		return a.result(req, balanceUnavailableText), nil
	}
	return contractx.AgentResult{}, fmt.Errorf("%w: %s: %v", contractx.ErrAgentInvocation, tool, err)
}

func (a *LedgerAgent) result(req contractx.AgentRequest, text string) contractx.AgentResult {
	return contractx.AgentResult{Text: text, Next: req.Next()}
}

func amountVerb(c contractx.Category) string {
	if c == contractx.CategoryWithdrawal {
		return "withdraw"
	}
	return "deposit"
}

func formatAccountDetails(out toolx.AccountDetailsOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account ID: %s\n", out.Account.ID)
	fmt.Fprintf(&b, "Account Holder: %s\n", out.Account.Holder)
	fmt.Fprintf(&b, "Account Type: %s\n", out.Account.Type)
	fmt.Fprintf(&b, "Current Balance: $%.2f", out.Account.Balance)
	if len(out.Transactions) == 0 {
		return b.String()
	}
	b.WriteString("\nRecent Transactions:")
	for _, tx := range out.Transactions {
		fmt.Fprintf(&b, "\n- %s %s $%.2f (balance $%.2f)",
			tx.CreatedAt.Format("2006-01-02"), tx.Kind, tx.Amount, tx.BalanceAfter)
	}
	return b.String()
}

package contract

import (
	"math"
	"strings"
	"time"
)

type Category string

const (
	CategoryDeposit        Category = "deposit"
	CategoryWithdrawal     Category = "withdrawal"
	CategoryBalance        Category = "balance"
	CategoryAccountDetails Category = "account_details"
	CategoryFAQ            Category = "faq"
	CategoryPolicy         Category = "policy"
	CategoryInvestment     Category = "investment"
	CategoryUnknown        Category = "unknown"
)

var categoryAliases = map[string]Category{
	"deposit":         CategoryDeposit,
	"withdrawal":      CategoryWithdrawal,
	"withdraw":        CategoryWithdrawal,
	"balance":         CategoryBalance,
	"check_balance":   CategoryBalance,
	"account_details": CategoryAccountDetails,
	"account_info":    CategoryAccountDetails,
	"faq":             CategoryFAQ,
	"policy":          CategoryPolicy,
	"investment":      CategoryInvestment,
	"investments":     CategoryInvestment,
}

// ParseCategory maps untrusted classifier output onto the closed category set.
// Anything it does not recognise is CategoryUnknown.
func ParseCategory(raw string) Category {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryUnknown
}

func (c Category) Valid() bool {
	return c != CategoryUnknown && ParseCategory(string(c)) == c
}

// NeedsAmount reports whether dispatching the category requires a positive amount.
func (c Category) NeedsAmount() bool {
	return c == CategoryDeposit || c == CategoryWithdrawal
}

type AgentName string

const (
	AgentLedger     AgentName = "ledger"
	AgentFAQ        AgentName = "faq"
	AgentPolicy     AgentName = "policy"
	AgentInvestment AgentName = "investment"
)

const (
	StageRouter     = "router"
	StageAggregator = "aggregator"
)

type Intent struct {
	Category      Category `json:"category"`
	Amount        float64  `json:"amount"`
	Clarification string   `json:"clarification,omitempty"`
}

// Normalize validates an intent produced by a classifier. Unknown categories stay
// CategoryUnknown; negative or non-finite amounts become 0 ("not supplied").
func (i Intent) Normalize() Intent {
	return Intent{
		Category:      ParseCategory(string(i.Category)),
		Amount:        sanitizeAmount(i.Amount),
		Clarification: strings.TrimSpace(i.Clarification),
	}
}

type SubRequest struct {
	Text     string    `json:"text"`
	Category Category  `json:"category"`
	Agent    AgentName `json:"agent"`
	Amount   float64   `json:"amount,omitempty"`
}

type DecompositionCandidate struct {
	IsMulti     bool         `json:"is_multi"`
	SubRequests []SubRequest `json:"sub_requests,omitempty"`
}

type RouteDecision struct {
	stage     string
	terminate bool
}

func Continue(stage string) RouteDecision {
	return RouteDecision{stage: strings.TrimSpace(stage)}
}

func Terminate() RouteDecision {
	return RouteDecision{terminate: true}
}

func (d RouteDecision) IsTerminal() bool { return d.terminate }

// Stage is the next stage name; empty for a terminal decision.
func (d RouteDecision) Stage() string { return d.stage }

func (d RouteDecision) Equal(other RouteDecision) bool {
	return d.terminate == other.terminate && d.stage == other.stage
}

func (d RouteDecision) String() string {
	if d.terminate {
		return "END"
	}
	if d.stage == "" {
		return "<none>"
	}
	return d.stage
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// AgentRequest is the slice of the conversation state an agent is allowed to see.
type AgentRequest struct {
	TurnID          string    `json:"turn_id"`
	Text            string    `json:"text"`
	Category        Category  `json:"category"`
	Amount          float64   `json:"amount"`
	InDecomposition bool      `json:"in_decomposition"`
	Index           int       `json:"index"`
	History         []Message `json:"history,omitempty"`
}

// Next is the decision an agent returns for this request.
func (r AgentRequest) Next() RouteDecision {
	if r.InDecomposition {
		return Continue(StageRouter)
	}
	return Terminate()
}

type AgentResult struct {
	Text string
	Next RouteDecision
}

type TurnEvent struct {
	TurnID     string     `json:"turn_id"`
	SessionID  string     `json:"session_id,omitempty"`
	Text       string     `json:"text"`
	Reply      string     `json:"reply"`
	Path       []string   `json:"path"`
	Categories []Category `json:"categories,omitempty"`
	Clarifying bool       `json:"clarifying"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	Duration   float64    `json:"duration_ms"`
}

func sanitizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

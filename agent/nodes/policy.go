package orchestratornode

import (
	"strings"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

// routingTable is the only place a category is bound to an agent.
var routingTable = map[contractx.Category]contractx.AgentName{
	contractx.CategoryDeposit:        contractx.AgentLedger,
	contractx.CategoryWithdrawal:     contractx.AgentLedger,
	contractx.CategoryBalance:        contractx.AgentLedger,
	contractx.CategoryAccountDetails: contractx.AgentLedger,
	contractx.CategoryFAQ:            contractx.AgentFAQ,
	contractx.CategoryPolicy:         contractx.AgentPolicy,
	contractx.CategoryInvestment:     contractx.AgentInvestment,
}

const DefaultFallbackCategory = contractx.CategoryBalance

func AgentFor(c contractx.Category) (contractx.AgentName, bool) {
	name, ok := routingTable[c]
	return name, ok
}

// Agents lists every agent the routing table can dispatch to, in a stable order.
func Agents() []contractx.AgentName {
	return []contractx.AgentName{
		contractx.AgentLedger,
		contractx.AgentFAQ,
		contractx.AgentPolicy,
		contractx.AgentInvestment,
	}
}

// ParseFallback validates a configured fallback category. Anything that cannot be
// dispatched becomes DefaultFallbackCategory.
func ParseFallback(raw string) contractx.Category {
	c := contractx.ParseCategory(raw)
	if _, ok := routingTable[c]; !ok {
		return DefaultFallbackCategory
	}
	return c
}

func resolveCategory(c contractx.Category, fallback contractx.Category) contractx.Category {
	c = contractx.ParseCategory(string(c))
	if _, ok := routingTable[c]; ok {
		return c
	}
	return fallback
}

// validateSubRequests turns untrusted decomposition output into dispatchable
// sub-requests. Empty texts are dropped; categories outside the closed set become the
// fallback; an agent name that disagrees with the routing table is replaced.
func validateSubRequests(subs []contractx.SubRequest, fallback contractx.Category) []contractx.SubRequest {
	out := make([]contractx.SubRequest, 0, len(subs))
	for _, sub := range subs {
		text := strings.TrimSpace(sub.Text)
		if text == "" {
			continue
		}
		category := resolveCategory(sub.Category, fallback)
		agent := routingTable[category]
		intent := contractx.Intent{Category: category, Amount: sub.Amount}.Normalize()
		out = append(out, contractx.SubRequest{
			Text:     text,
			Category: category,
			Agent:    agent,
			Amount:   intent.Amount,
		})
	}
	return out
}

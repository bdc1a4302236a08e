package orchestratornode

import (
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
)

// Matches "50", "1,250.75", "$50.5"; the first match wins.
var amountPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

var categoryVerbs = map[contractx.Category]string{
	contractx.CategoryDeposit:    "deposit",
	contractx.CategoryWithdrawal: "withdraw",
}

// Clarifier merges a follow-up answer with the clarification the previous turn asked.
type Clarifier struct{}

// Resolve returns the text the router should classify and the carry to keep. The
// pending clarification is always consumed, whether or not the reply has a number.
func (Clarifier) Resolve(carry statex.Carry, text string) (string, statex.Carry) {
	text = strings.TrimSpace(text)
	if !carry.Awaiting() {
		return text, statex.Carry{}
	}

	pending := carry.Clarification
	if amount, ok := ExtractAmount(text); ok {
		return "I want to " + verbFor(pending.Category) + " " + formatAmount(amount) + " dollars", statex.Carry{}
	}
	return string(pending.Category) + ": " + text, statex.Carry{}
}

// ExtractAmount finds the first positive number in text.
func ExtractAmount(text string) (float64, bool) {
	raw := amountPattern.FindString(text)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func verbFor(c contractx.Category) string {
	if v, ok := categoryVerbs[c]; ok {
		return v
	}
	return string(c)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier_single.txt
	classifierSingleRaw string

	//go:embed template/classifier_multi.txt
	classifierMultiRaw string

	//go:embed template/faq.txt
	faqRaw string

	//go:embed template/policy.txt
	policyRaw string

	//go:embed template/investment.txt
	investmentRaw string

	//go:embed template/summarizer.txt
	summarizerRaw string

	//go:embed template/evaluator.txt
	evaluatorRaw string
)

// PromptSet holds loaded prompt content. Document prompts take a {context}
// variable; the evaluator prompt takes {query} and {response}.
type PromptSet struct {
	ClassifierSingle string
	ClassifierMulti  string
	FAQ              string
	Policy           string
	Investment       string
	Summarizer       string
	Evaluator        string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		ClassifierSingle: strings.TrimSpace(classifierSingleRaw),
		ClassifierMulti:  strings.TrimSpace(classifierMultiRaw),
		FAQ:              strings.TrimSpace(faqRaw),
		Policy:           strings.TrimSpace(policyRaw),
		Investment:       strings.TrimSpace(investmentRaw),
		Summarizer:       strings.TrimSpace(summarizerRaw),
		Evaluator:        strings.TrimSpace(evaluatorRaw),
	}
}

// Document returns the answering prompt of a document collection.
func (p PromptSet) Document(collection string) (string, bool) {
	switch collection {
	case "faq":
		return p.FAQ, true
	case "policy":
		return p.Policy, true
	case "investment":
		return p.Investment, true
	default:
		return "", false
	}
}

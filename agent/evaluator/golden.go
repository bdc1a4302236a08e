package evaluator

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Case is one golden conversation turn.
type Case struct {
	Name           string   `yaml:"name"`
	Query          string   `yaml:"query"`
	ExpectedAgents []string `yaml:"expected_agents"`
	Multi          bool     `yaml:"multi"`
	Contains       []string `yaml:"contains,omitempty"`
}

type caseFile struct {
	Cases []Case `yaml:"cases"`
}

// TurnOutcome is what a golden case observes of one turn.
type TurnOutcome struct {
	Reply  string
	Agents []string
	Multi  bool
}

type TurnRunner func(ctx context.Context, query string) (TurnOutcome, error)

type Grader interface {
	Evaluate(ctx context.Context, query, response string) (Evaluation, error)
}

type CaseResult struct {
	Case       Case          `yaml:"case"`
	Reply      string        `yaml:"reply"`
	Agents     []string      `yaml:"agents"`
	Passed     bool          `yaml:"passed"`
	Failures   []string      `yaml:"failures,omitempty"`
	Evaluation *Evaluation   `yaml:"evaluation,omitempty"`
	Duration   time.Duration `yaml:"duration"`
}

type Report struct {
	Results      []CaseResult `yaml:"results"`
	Passed       int          `yaml:"passed"`
	Failed       int          `yaml:"failed"`
	AverageScore float64      `yaml:"average_score,omitempty"`
}

func LoadCases(path string) ([]Case, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	return ParseCases(raw)
}

func ParseCases(raw []byte) ([]Case, error) {
	var f caseFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: decode cases: %v", contractx.ErrValidation, err)
	}
	for i, c := range f.Cases {
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("%w: case %d has no query", contractx.ErrValidation, i)
		}
		if c.Name == "" {
			f.Cases[i].Name = fmt.Sprintf("case-%d", i+1)
		}
	}
	return f.Cases, nil
}

// Run plays every case through run. A nil grader skips quality scoring.
func Run(ctx context.Context, cases []Case, run TurnRunner, grader Grader) (Report, error) {
	if run == nil {
		return Report{}, fmt.Errorf("%w: turn runner is required", contractx.ErrConfiguration)
	}

	var (
		report Report
		scored int
		total  int
	)
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		started := time.Now()
		outcome, err := run(ctx, c.Query)
		res := CaseResult{
			Case:     c,
			Reply:    outcome.Reply,
			Agents:   outcome.Agents,
			Duration: time.Since(started),
		}
		if err != nil {
			res.Failures = append(res.Failures, "turn error: "+err.Error())
		}
		res.Failures = append(res.Failures, check(c, outcome)...)

		if grader != nil && err == nil {
			ev, gerr := grader.Evaluate(ctx, c.Query, outcome.Reply)
			if gerr != nil {
				logx.Warn().Err(gerr).Str("case", c.Name).Msg("evaluation failed")
			} else {
				res.Evaluation = &ev
				scored++
				total += ev.Score
			}
		}

		res.Passed = len(res.Failures) == 0
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	if scored > 0 {
		report.AverageScore = float64(total) / float64(scored)
	}
	return report, nil
}

func check(c Case, out TurnOutcome) []string {
	var failures []string
	if c.Multi != out.Multi {
		failures = append(failures, fmt.Sprintf("multi=%t, want %t", out.Multi, c.Multi))
	}
	if len(c.ExpectedAgents) > 0 && !slices.Equal(c.ExpectedAgents, out.Agents) {
		failures = append(failures, fmt.Sprintf("agents=%v, want %v", out.Agents, c.ExpectedAgents))
	}
	for _, want := range c.Contains {
		if !strings.Contains(out.Reply, want) {
			failures = append(failures, fmt.Sprintf("reply does not contain %q", want))
		}
	}
	return failures
}

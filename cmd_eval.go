package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	evaluatorx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/evaluator"
	promptx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/prompt"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	"gopkg.in/yaml.v3"
)

var (
	evalCases string
	evalScore bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run golden routing cases and optionally grade the replies",
	Long: `Play every case of a YAML file through the assistant and check the agents it
reached. With --score each reply is also graded 1-10 by the evaluator model.

Examples:
  bankbot eval --cases testdata/golden.yaml
  bankbot eval --cases testdata/golden.yaml --score`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalCases, "cases", "testdata/golden.yaml", "YAML file with golden cases")
	evalCmd.Flags().BoolVar(&evalScore, "score", false, "grade replies with the evaluator model")
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cases, err := evaluatorx.LoadCases(evalCases)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var grader evaluatorx.Grader
	if evalScore {
		e, err := evaluatorx.FromConfig(a.llm, promptx.LoadPromptSet().Evaluator)
		if err != nil {
			return err
		}
		grader = e
	}

	run := func(ctx context.Context, query string) (evaluatorx.TurnOutcome, error) {
		res, err := a.orchestrator.Turn(ctx, query, statex.Carry{})
		return evaluatorx.TurnOutcome{
			Reply:  res.Reply,
			Agents: res.Agents(),
			Multi:  res.Decomposed(),
		}, err
	}

	report, err := evaluatorx.Run(ctx, cases, run, grader)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d cases failed", report.Failed, len(report.Results))
	}
	return nil
}

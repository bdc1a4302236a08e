package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

var indexCollection string

var indexCmd = &cobra.Command{
	Use:   "index FILE...",
	Short: "Chunk text documents into a knowledge collection",
	Long: `Split text files into overlapping chunks and add them to the knowledge index
configured by KNOWLEDGE_PATH (default data/knowledge.bleve).

Examples:
  bankbot index --collection faq docs/faq.txt
  bankbot index --collection policy docs/terms.txt docs/privacy.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexCollection, "collection", "c", "", "faq, policy or investment")
	_ = indexCmd.MarkFlagRequired("collection")
}

func runIndex(cmd *cobra.Command, args []string) error {
	collection := strings.ToLower(strings.TrimSpace(indexCollection))
	switch contractx.AgentName(collection) {
	case contractx.AgentFAQ, contractx.AgentPolicy, contractx.AgentInvestment:
	default:
		return fmt.Errorf("%w: unknown collection %q", contractx.ErrValidation, indexCollection)
	}

	idx, _, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()
	if !idx.Persistent() {
		return fmt.Errorf("%w: KNOWLEDGE_PATH is empty; indexed chunks would be discarded", contractx.ErrConfiguration)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		chunks, err := idx.AddDocument(ctx, collection, filepath.Base(path), string(raw))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d chunks\n", path, len(chunks))
	}

	total, err := idx.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "index holds %d chunks\n", total)
	return nil
}

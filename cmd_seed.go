package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo account when it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, cfg, closeFn, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		acc, err := store.Account(ctx, cfg.AccountID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Account %s (%s, %s) balance $%.2f\n", acc.ID, acc.Holder, acc.Type, acc.Balance)
		return nil
	},
}

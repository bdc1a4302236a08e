package main

import (
	"os"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/config"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
	_ "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger/autoload"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "bankbot",
	Short:         "Banking dialogue assistant",
	Long:          `bankbot routes customer messages to ledger and document agents, splitting multi-part requests and asking for missing amounts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configx.SetEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default ./.env when present)")
	rootCmd.AddCommand(chatCmd, seedCmd, indexCmd, evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

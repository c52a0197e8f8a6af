package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fiona",
	Short: "Risk-gated trade execution for WTI crude setups",
	Long: `Fiona is the decision and execution core of a trading assistant.

It provides:
  - Risk admission checks and position-size fitting for candidate trades
  - A validated session lifecycle from proposal to exit
  - Live execution against the IG REST API
  - A shadow trader that simulates declined or denied trades
  - SQLite/CSV journaling of every trade and rejection`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var whyTimeout time.Duration

// whyCmd implements 'intelctl why TICKER'
var whyCmd = &cobra.Command{
	Use:   "why TICKER",
	Short: "Explain the latest price move of a ticker",
	Long: `Attribute the latest daily move of a ticker to earnings, material filings,
news sentiment and analyst upgrades.

Examples:
  intelctl why NVDA`,
	Args: cobra.ExactArgs(1),
	RunE: runWhy,
}

func init() {
	rootCmd.AddCommand(whyCmd)
	whyCmd.Flags().DurationVar(&whyTimeout, "timeout", time.Minute, "Timeout for provider calls")
}

func runWhy(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), whyTimeout)
	defer cancel()

	move, err := svc.stocks.Explain(ctx, args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), move)
	}
	return writeMove(cmd.OutOrStdout(), move)
}

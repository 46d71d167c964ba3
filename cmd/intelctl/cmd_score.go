package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

var (
	scoreTimeout     time.Duration
	scoreTechnical   float64
	scoreFundamental float64
	scoreCatalyst    float64
)

// scoreCmd implements 'intelctl score TICKER'
var scoreCmd = &cobra.Command{
	Use:   "score TICKER",
	Short: "Score a ticker and print the recommendation",
	Long: `Fetch prices, fundamentals and recent events for a ticker and print its
technical, fundamental and catalyst scores with the composite recommendation.

Examples:
  intelctl score NVDA
  intelctl score AMD --technical 0.5 --fundamental 0.3 --catalyst 0.2
  intelctl score MSFT --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", time.Minute, "Timeout for provider calls")
	scoreCmd.Flags().Float64Var(&scoreTechnical, "technical", 0, "Technical weight override")
	scoreCmd.Flags().Float64Var(&scoreFundamental, "fundamental", 0, "Fundamental weight override")
	scoreCmd.Flags().Float64Var(&scoreCatalyst, "catalyst", 0, "Catalyst weight override")
}

func runScore(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), scoreTimeout)
	defer cancel()

	weights := weightOverrides(cmd, svc.stocks.Weights())
	analysis, err := svc.stocks.Analyze(ctx, args[0], weights)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), analysis)
	}
	return writeAnalysis(cmd.OutOrStdout(), analysis)
}

// weightOverrides returns nil unless a weight flag was given
func weightOverrides(cmd *cobra.Command, defaults scorers.Weights) *scorers.Weights {
	flags := cmd.Flags()
	if !flags.Changed("technical") && !flags.Changed("fundamental") && !flags.Changed("catalyst") {
		return nil
	}
	w := defaults
	if flags.Changed("technical") {
		w.Technical = scoreTechnical
	}
	if flags.Changed("fundamental") {
		w.Fundamental = scoreFundamental
	}
	if flags.Changed("catalyst") {
		w.Catalyst = scoreCatalyst
	}
	return &w
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/marketintel/internal/modules/digest"
)

var (
	digestDate    string
	digestTimeout time.Duration
)

// digestCmd implements 'intelctl digest'
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Generate and store the daily digest",
	Long: `Analyze the configured universe, store the digest for the given date and
print it. An existing digest for the same date is replaced.

Examples:
  intelctl digest
  intelctl digest --date 2024-09-10 --format json`,
	Args: cobra.NoArgs,
	RunE: runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVar(&digestDate, "date", "", "Digest date as YYYY-MM-DD (default today)")
	digestCmd.Flags().DurationVar(&digestTimeout, "timeout", digest.GenerateTimeout, "Timeout for the whole run")
}

func runDigest(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if digestDate != "" {
		parsed, err := time.Parse(digest.DateLayout, digestDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", digestDate)
		}
		date = parsed
	}

	svc, err := loadServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), digestTimeout)
	defer cancel()

	svc.log.Info().Str("date", date.Format(digest.DateLayout)).Msg("Generating digest")
	d, err := svc.digests.Generate(ctx, date)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), d)
	}
	return writeDigest(cmd.OutOrStdout(), d)
}

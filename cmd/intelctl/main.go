// Package main is intelctl, a command line client for scoring tickers, explaining moves
// and generating digests without running the API server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aristath/marketintel/internal/config"
	"github.com/aristath/marketintel/internal/di"
	"github.com/aristath/marketintel/internal/modules/digest"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
	"github.com/aristath/marketintel/pkg/logger"
)

var (
	outputFormat string
	logLevel     string
)

// rootCmd is the base command for the intelctl CLI
var rootCmd = &cobra.Command{
	Use:   "intelctl",
	Short: "Market intelligence command line client",
	Long: `intelctl scores tickers, explains recent price moves and generates the daily
digest using the same providers and database as the API server.

Provider keys and DATABASE_URL are read from the environment or a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes to stderr, pretty only when stderr is a terminal
func newLogger() zerolog.Logger {
	return logger.New(logger.Config{
		Level:  logLevel,
		Pretty: term.IsTerminal(int(os.Stderr.Fd())),
		Output: os.Stderr,
	})
}

// stockService is the part of stocks.Service the subcommands use
type stockService interface {
	Weights() scorers.Weights
	Analyze(ctx context.Context, ticker string, weights *scorers.Weights) (*stocks.Analysis, error)
	Explain(ctx context.Context, ticker string) (*stocks.MoveExplanation, error)
}

type digestGenerator interface {
	Generate(ctx context.Context, date time.Time) (*digest.Digest, error)
}

// services are what a subcommand runs against
type services struct {
	stocks  stockService
	digests digestGenerator
	log     zerolog.Logger
	close   func()
}

// loadServices builds the services for a subcommand
var loadServices = wire

// wire loads configuration and builds the service container
func wire() (*services, error) {
	log := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return nil, err
	}
	return &services{
		stocks:  container.StocksService,
		digests: container.DigestService,
		log:     log,
		close:   container.Close,
	}, nil
}

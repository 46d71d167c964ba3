package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/clients/alphavantage"
	"github.com/aristath/marketintel/internal/clients/edgar"
	"github.com/aristath/marketintel/internal/clients/fmp"
	"github.com/aristath/marketintel/internal/clients/fred"
	"github.com/aristath/marketintel/internal/clients/marketaux"
	"github.com/aristath/marketintel/internal/clients/yahoo"
	"github.com/aristath/marketintel/internal/config"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/digest"
	"github.com/aristath/marketintel/internal/modules/events"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
)

const digestConcurrency = 4

// InitializeClients creates one rate-limited, circuit-broken transport per provider
func InitializeClients(cfg *config.Config, container *Container, log zerolog.Logger) {
	transport := func(name string, rps float64, burst int) *clients.Transport {
		return clients.NewTransport(clients.TransportConfig{
			Name:              name,
			UserAgent:         cfg.SECUserAgent,
			RequestsPerSecond: rps,
			Burst:             burst,
			Timeout:           cfg.ProviderTimeout,
		}, container.Metrics, log)
	}
	loader := container.CacheLoader

	container.YahooClient = yahoo.NewClient(transport("yahoo", 2, 4), loader, log)
	container.FMPClient = fmp.NewClient(cfg.FMPAPIKey, transport("fmp", 5, 5), loader, log)
	// Free tier allows 5 calls a minute
	container.AlphaVantageClient = alphavantage.NewClient(cfg.AlphaVantageAPIKey, transport("alphavantage", 5.0/60, 1), loader, log)
	container.MarketauxClient = marketaux.NewClient(cfg.MarketauxAPIKey, transport("marketaux", 1, 2), loader, log)
	// SEC fair-access limit
	container.EdgarClient = edgar.NewClient(transport("edgar", 10, 10), loader, log)
	container.FREDClient = fred.NewClient(cfg.FREDAPIKey, transport("fred", 2, 4), loader, log)

	log.Info().
		Bool("fmp", container.FMPClient.Configured()).
		Bool("alphavantage", container.AlphaVantageClient.Configured()).
		Bool("fred", container.FREDClient.Configured()).
		Msg("Provider clients initialized")
}

// InitializeServices creates the scoring engine and the stocks, digest and events services
func InitializeServices(cfg *config.Config, container *Container, log zerolog.Logger) error {
	universe := cfg.Universe
	if universe == nil {
		universe = config.DefaultUniverse()
	}

	container.ScoringEngine = scorers.NewEngine(log).WithMetrics(container.Metrics)

	container.StocksService = stocks.NewService(stocks.Providers{
		Prices: container.YahooClient,
		// First configured provider with data wins
		Fundamentals: []domain.FundamentalsProvider{
			container.FMPClient,
			container.AlphaVantageClient,
			container.YahooClient,
		},
		Earnings: container.FMPClient,
		Analyst:  container.FMPClient,
		News:     container.MarketauxClient,
		Filings:  container.EdgarClient,
	}, container.ScoringEngine, universe.Weights, log)

	container.DigestRepo = digest.NewRepository(container.DB.Conn(), log)

	deps := digest.Dependencies{
		Analyzer:  container.StocksService,
		Explainer: container.ScoringEngine,
		Prices:    container.YahooClient,
		Calendar:  container.FMPClient,
		Macro:     container.FREDClient,
		Store:     container.DigestRepo,
		Metrics:   container.Metrics,
	}
	if cfg.DigestArchiveBucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		archiver, err := digest.NewS3Archiver(ctx, digest.S3Config{
			Bucket:    cfg.DigestArchiveBucket,
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create digest archiver: %w", err)
		}
		deps.Archiver = archiver
		log.Info().Str("bucket", cfg.DigestArchiveBucket).Msg("Digest archiving enabled")
	}

	container.DigestService = digest.NewService(digest.Config{
		Tickers:       universe.Tickers,
		Weights:       universe.Weights,
		WatchListSize: universe.WatchListSize,
		Concurrency:   digestConcurrency,
		MacroSeries:   fred.DefaultSeries,
	}, deps, log)

	container.EventsService = events.NewService(events.Dependencies{
		Calendar:  container.FMPClient,
		Filings:   container.EdgarClient,
		Insiders:  container.EdgarClient,
		Macro:     container.FREDClient,
		Companies: container.EdgarClient,
	}, universe.Tickers, fred.DefaultSeries, log)

	log.Info().Int("universe", len(universe.Tickers)).Msg("Services initialized")
	return nil
}

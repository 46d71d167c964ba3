// Package di wires databases, provider clients, services and jobs into a single container.
package di

import (
	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clientdata"
	"github.com/aristath/marketintel/internal/clients/alphavantage"
	"github.com/aristath/marketintel/internal/clients/edgar"
	"github.com/aristath/marketintel/internal/clients/fmp"
	"github.com/aristath/marketintel/internal/clients/fred"
	"github.com/aristath/marketintel/internal/clients/marketaux"
	"github.com/aristath/marketintel/internal/clients/yahoo"
	"github.com/aristath/marketintel/internal/database"
	"github.com/aristath/marketintel/internal/metrics"
	"github.com/aristath/marketintel/internal/modules/digest"
	"github.com/aristath/marketintel/internal/modules/events"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
	"github.com/aristath/marketintel/internal/scheduler"
)

// Container holds every application dependency. It is the single source of truth for service instances.
type Container struct {
	// Storage
	DB             *database.DB
	Redis          *cache.Redis // nil unless REDIS_URL is set
	ClientDataRepo *clientdata.Repository
	CacheLoader    *cache.Loader

	Metrics *metrics.Registry

	// Provider clients
	YahooClient        *yahoo.Client
	FMPClient          *fmp.Client
	AlphaVantageClient *alphavantage.Client
	MarketauxClient    *marketaux.Client
	EdgarClient        *edgar.Client
	FREDClient         *fred.Client

	// Services
	ScoringEngine *scorers.Engine
	StocksService *stocks.Service
	DigestRepo    *digest.Repository
	DigestService *digest.Service
	EventsService *events.Service

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered background jobs for manual triggering
type JobInstances struct {
	Digest       scheduler.Job
	CacheCleanup scheduler.Job
	HealthCheck  scheduler.Job
}

// Close releases storage connections
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

package di

import (
	"github.com/rs/zerolog"

	digesthandlers "github.com/aristath/marketintel/internal/modules/digest/handlers"
	eventshandlers "github.com/aristath/marketintel/internal/modules/events/handlers"
	scoringhandlers "github.com/aristath/marketintel/internal/modules/scoring/api/handlers"
	stockshandlers "github.com/aristath/marketintel/internal/modules/stocks/handlers"
	"github.com/aristath/marketintel/internal/server"
)

// Routes returns the HTTP handlers of every module, ready to mount under /api
func (c *Container) Routes(log zerolog.Logger) []server.RouteRegistrar {
	return []server.RouteRegistrar{
		stockshandlers.NewHandlers(c.StocksService, log),
		scoringhandlers.NewHandlers(c.ScoringEngine, c.StocksService.Weights(), log),
		digesthandlers.NewHandlers(c.DigestService, log),
		eventshandlers.NewHandlers(c.EventsService, log),
	}
}

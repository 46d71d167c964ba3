// Package fred provides macroeconomic series from the St. Louis Fed FRED API.
package fred

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
)

const (
	defaultBaseURL = "https://api.stlouisfed.org/fred"
	dateLayout     = "2006-01-02"
	ttlSeries      = 6 * time.Hour
)

// Series tracked for the digest macro context
const (
	SeriesCPI          = "CPIAUCSL"
	SeriesUnemployment = "UNRATE"
	SeriesFedFunds     = "DFF"
	SeriesGDP          = "GDP"
)

// DefaultSeries is the macro context shown alongside recommendations
var DefaultSeries = []string{SeriesCPI, SeriesUnemployment, SeriesFedFunds}

type seriesInfo struct {
	name  string
	units string
}

var knownSeries = map[string]seriesInfo{
	SeriesCPI:          {name: "Consumer Price Index", units: "index 1982-1984=100"},
	SeriesUnemployment: {name: "Unemployment Rate", units: "percent"},
	SeriesFedFunds:     {name: "Federal Funds Effective Rate", units: "percent"},
	SeriesGDP:          {name: "Gross Domestic Product", units: "billions of dollars"},
}

// Client is the FRED API client
type Client struct {
	baseURL   string
	apiKey    string
	transport *clients.Transport
	cache     *cache.Loader
	log       zerolog.Logger
}

// NewClient creates a new FRED client
func NewClient(apiKey string, transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		transport: transport,
		cache:     loader,
		log:       log.With().Str("client", "fred").Logger(),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Latest returns the newest observation of a series along with the one before it
func (c *Client) Latest(ctx context.Context, seriesID string) (*domain.MacroObservation, error) {
	if !c.Configured() {
		return nil, clients.ErrNotConfigured
	}

	key := cache.Key("fred", "latest", seriesID)
	return cache.Fetch(ctx, c.cache, key, ttlSeries, func(ctx context.Context) (*domain.MacroObservation, error) {
		query := url.Values{
			"series_id":  {seriesID},
			"api_key":    {c.apiKey},
			"file_type":  {"json"},
			"sort_order": {"desc"},
			// FRED reports gaps as "."; fetch a few extra to skip them
			"limit": {"6"},
		}
		var resp observationsResponse
		if err := c.transport.GetJSON(ctx, c.baseURL+"/series/observations", query, &resp); err != nil {
			return nil, fmt.Errorf("failed to get observations for %s: %w", seriesID, err)
		}

		var obs *domain.MacroObservation
		for _, o := range resp.Observations {
			value, err := strconv.ParseFloat(o.Value, 64)
			if err != nil {
				continue
			}
			if obs == nil {
				date, err := time.Parse(dateLayout, o.Date)
				if err != nil {
					continue
				}
				info := knownSeries[seriesID]
				obs = &domain.MacroObservation{
					Date:     date,
					SeriesID: seriesID,
					Name:     info.name,
					Units:    info.units,
					Value:    value,
				}
				continue
			}
			prev := value
			obs.Previous = &prev
			break
		}
		if obs == nil {
			return nil, fmt.Errorf("no observations for %s: %w", seriesID, clients.ErrNotFound)
		}
		if obs.Name == "" {
			obs.Name = seriesID
		}
		return obs, nil
	})
}

// LatestAll returns observations for each series, skipping series that fail
func (c *Client) LatestAll(ctx context.Context, seriesIDs []string) []domain.MacroObservation {
	out := make([]domain.MacroObservation, 0, len(seriesIDs))
	for _, id := range seriesIDs {
		obs, err := c.Latest(ctx, id)
		if err != nil {
			c.log.Warn().Err(err).Str("series", id).Msg("Failed to get macro series")
			continue
		}
		out = append(out, *obs)
	}
	return out
}

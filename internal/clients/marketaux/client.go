// Package marketaux provides scored financial news from Marketaux.
package marketaux

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/pkg/formulas"
)

const (
	defaultBaseURL = "https://api.marketaux.com/v1"
	ttlNews        = 30 * time.Minute
	// Free tier caps a page at this many articles
	maxLimit = 50
)

// Client is the Marketaux API client
type Client struct {
	baseURL   string
	apiToken  string
	transport *clients.Transport
	cache     *cache.Loader
	log       zerolog.Logger
}

// NewClient creates a new Marketaux client. Without a token every call returns clients.ErrNotConfigured.
func NewClient(apiToken string, transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		apiToken:  apiToken,
		transport: transport,
		cache:     loader,
		log:       log.With().Str("client", "marketaux").Logger(),
	}
}

type entity struct {
	Symbol         string   `json:"symbol"`
	SentimentScore *float64 `json:"sentiment_score"`
}

type article struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Snippet     string   `json:"snippet"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"published_at"`
	Entities    []entity `json:"entities"`
}

type newsResponse struct {
	Data []article `json:"data"`
}

// News returns up to limit recent English articles, newest first.
// An empty ticker returns general market news.
func (c *Client) News(ctx context.Context, ticker string, limit int) ([]domain.NewsItem, error) {
	if c.apiToken == "" {
		return nil, clients.ErrNotConfigured
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	ticker = domain.NormalizeTicker(ticker)

	key := cache.Key("marketaux", "news", ticker, strconv.Itoa(limit))
	return cache.Fetch(ctx, c.cache, key, ttlNews, func(ctx context.Context) ([]domain.NewsItem, error) {
		query := url.Values{
			"api_token": {c.apiToken},
			"limit":     {strconv.Itoa(limit)},
			"language":  {"en"},
		}
		if ticker != "" {
			query.Set("symbols", ticker)
			query.Set("filter_entities", "true")
		}

		var resp newsResponse
		if err := c.transport.GetJSON(ctx, c.baseURL+"/news/all", query, &resp); err != nil {
			return nil, fmt.Errorf("failed to get news for %q: %w", ticker, err)
		}

		items := make([]domain.NewsItem, 0, len(resp.Data))
		for _, a := range resp.Data {
			published, err := time.Parse(time.RFC3339, a.PublishedAt)
			if err != nil {
				c.log.Debug().Str("published_at", a.PublishedAt).Msg("Skipping article with unparseable date")
				continue
			}
			summary := a.Description
			if summary == "" {
				summary = a.Snippet
			}
			items = append(items, domain.NewsItem{
				PublishedAt: published,
				Headline:    a.Title,
				Summary:     summary,
				URL:         a.URL,
				Source:      a.Source,
				Sentiment:   articleSentiment(a.Entities, ticker),
			})
		}
		if len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	})
}

// articleSentiment averages entity sentiment for ticker, or across all entities
// when the ticker is not among them. Articles without scored entities are neutral.
func articleSentiment(entities []entity, ticker string) float64 {
	var matched, all []float64
	for _, e := range entities {
		if e.SentimentScore == nil {
			continue
		}
		all = append(all, *e.SentimentScore)
		if ticker != "" && strings.EqualFold(e.Symbol, ticker) {
			matched = append(matched, *e.SentimentScore)
		}
	}
	if len(matched) > 0 {
		return formulas.Mean(matched)
	}
	return formulas.Mean(all)
}

// Package edgar provides SEC filings from the EDGAR submissions API.
package edgar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
)

const (
	defaultTickersURL  = "https://www.sec.gov/files/company_tickers.json"
	defaultDataURL     = "https://data.sec.gov"
	defaultArchivesURL = "https://www.sec.gov/Archives/edgar/data"

	ttlTickers     = 7 * 24 * time.Hour
	ttlSubmissions = time.Hour
	dateLayout     = "2006-01-02"
)

// Client is the SEC EDGAR client. EDGAR needs no key but rejects requests without a descriptive User-Agent,
// which the transport supplies.
type Client struct {
	tickersURL  string
	dataURL     string
	archivesURL string
	transport   *clients.Transport
	cache       *cache.Loader
	log         zerolog.Logger
}

// NewClient creates a new EDGAR client
func NewClient(transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return &Client{
		tickersURL:  defaultTickersURL,
		dataURL:     defaultDataURL,
		archivesURL: defaultArchivesURL,
		transport:   transport,
		cache:       loader,
		log:         log.With().Str("client", "edgar").Logger(),
	}
}

// Company identifies an SEC registrant
type Company struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// LookupCIK resolves a ticker to its registrant
func (c *Client) LookupCIK(ctx context.Context, ticker string) (*Company, error) {
	ticker = domain.NormalizeTicker(ticker)

	companies, err := cache.Fetch(ctx, c.cache, cache.Key("edgar", "tickers"), ttlTickers, func(ctx context.Context) (map[string]Company, error) {
		var raw map[string]Company
		if err := c.transport.GetJSON(ctx, c.tickersURL, nil, &raw); err != nil {
			return nil, fmt.Errorf("failed to get company tickers: %w", err)
		}
		byTicker := make(map[string]Company, len(raw))
		for _, company := range raw {
			byTicker[strings.ToUpper(company.Ticker)] = company
		}
		return byTicker, nil
	})
	if err != nil {
		return nil, err
	}

	company, ok := companies[ticker]
	if !ok {
		return nil, fmt.Errorf("no SEC registrant for %s: %w", ticker, clients.ErrNotFound)
	}
	return &company, nil
}

type recentFilings struct {
	AccessionNumber       []string `json:"accessionNumber"`
	FilingDate            []string `json:"filingDate"`
	Form                  []string `json:"form"`
	PrimaryDocument       []string `json:"primaryDocument"`
	PrimaryDocDescription []string `json:"primaryDocDescription"`
	Items                 []string `json:"items"`
}

type submissions struct {
	Name    string `json:"name"`
	Filings struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

// Filings returns filings of formType (empty matches every form) filed on or after since, newest first
func (c *Client) Filings(ctx context.Context, ticker, formType string, since time.Time) ([]domain.Filing, error) {
	company, err := c.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	all, err := cache.Fetch(ctx, c.cache, cache.Key("edgar", "submissions", company.Ticker), ttlSubmissions, func(ctx context.Context) ([]domain.Filing, error) {
		var sub submissions
		endpoint := fmt.Sprintf("%s/submissions/CIK%010d.json", c.dataURL, company.CIK)
		if err := c.transport.GetJSON(ctx, endpoint, nil, &sub); err != nil {
			return nil, fmt.Errorf("failed to get submissions for %s: %w", company.Ticker, err)
		}
		return c.mapFilings(company, sub.Filings.Recent), nil
	})
	if err != nil {
		return nil, err
	}

	since = since.Truncate(24 * time.Hour)
	out := make([]domain.Filing, 0)
	for _, f := range all {
		if formType != "" && !strings.EqualFold(f.Type, formType) {
			continue
		}
		if f.Date.Before(since) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// InsiderTransactions returns Form 4 filings since the given time
func (c *Client) InsiderTransactions(ctx context.Context, ticker string, since time.Time) ([]domain.Filing, error) {
	return c.Filings(ctx, ticker, domain.FilingTypeForm4, since)
}

func (c *Client) mapFilings(company *Company, recent recentFilings) []domain.Filing {
	n := len(recent.AccessionNumber)
	filings := make([]domain.Filing, 0, n)
	for i := 0; i < n; i++ {
		date, err := time.Parse(dateLayout, at(recent.FilingDate, i))
		if err != nil {
			continue
		}
		accession := recent.AccessionNumber[i]
		description := at(recent.PrimaryDocDescription, i)
		if items := at(recent.Items, i); items != "" {
			description = strings.TrimSpace(description + " (items " + items + ")")
		}

		filing := domain.Filing{
			Date:        date,
			Ticker:      company.Ticker,
			Type:        at(recent.Form, i),
			AccessionNo: accession,
			Description: description,
		}
		if doc := at(recent.PrimaryDocument, i); doc != "" {
			filing.URL = fmt.Sprintf("%s/%d/%s/%s", c.archivesURL, company.CIK, strings.ReplaceAll(accession, "-", ""), doc)
		}
		filings = append(filings, filing)
	}
	sort.SliceStable(filings, func(i, j int) bool { return filings[i].Date.After(filings[j].Date) })
	return filings
}

// at tolerates the parallel arrays being ragged
func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

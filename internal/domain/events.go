package domain

import "time"

// Filing form types
const (
	FilingType8K    = "8-K"
	FilingType10K   = "10-K"
	FilingType10Q   = "10-Q"
	FilingTypeForm4 = "4"
)

// NewsItem is a news article with a sentiment score in [-1, 1]
type NewsItem struct {
	PublishedAt time.Time `json:"published_at"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source,omitempty"`
	Sentiment   float64   `json:"sentiment"`
}

// Filing is a regulatory filing
type Filing struct {
	Date        time.Time `json:"date"`
	Ticker      string    `json:"ticker,omitempty"`
	Type        string    `json:"type"`
	AccessionNo string    `json:"accession_no,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Earnings is the most recent reported quarter for a ticker
type Earnings struct {
	ReportDate         time.Time `json:"report_date"`
	Ticker             string    `json:"ticker,omitempty"`
	EPSActual          float64   `json:"eps_actual"`
	EPSEstimate        float64   `json:"eps_estimate"`
	EPSSurprisePercent float64   `json:"eps_surprise_percent"`
}

// EarningsEvent is a scheduled earnings announcement
type EarningsEvent struct {
	Date            time.Time `json:"date"`
	Ticker          string    `json:"ticker"`
	Company         string    `json:"company,omitempty"`
	Time            string    `json:"time,omitempty"` // before_market, after_market
	EPSEstimate     *float64  `json:"eps_estimate,omitempty"`
	RevenueEstimate *float64  `json:"revenue_estimate,omitempty"`
}

// EventsSnapshot bundles the recent events used to explain a price move
type EventsSnapshot struct {
	Earnings       *Earnings  `json:"earnings,omitempty"`
	Filings8K      []Filing   `json:"8k_filings,omitempty"`
	News           []NewsItem `json:"news,omitempty"`
	AnalystActions []string   `json:"analyst_upgrades,omitempty"`
}

// Only8K filters filings down to material event reports
func Only8K(filings []Filing) []Filing {
	out := make([]Filing, 0, len(filings))
	for _, f := range filings {
		if f.Type == FilingType8K {
			out = append(out, f)
		}
	}
	return out
}

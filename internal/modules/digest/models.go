// Package digest builds, stores and evaluates the daily market digest.
package digest

import (
	"time"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

// DateLayout is the calendar date format used for digest dates
const DateLayout = "2006-01-02"

// Index symbols summarised in the overnight moves
const (
	IndexSP500  = "^GSPC"
	IndexNasdaq = "^IXIC"
	IndexDow    = "^DJI"
)

// Expected impact labels for key events
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
)

// OvernightMoves are the index changes in percent. Nil means the index quote was unavailable.
type OvernightMoves struct {
	SP500Change  *float64 `json:"sp500_change"`
	NasdaqChange *float64 `json:"nasdaq_change"`
	DowChange    *float64 `json:"dow_change"`
}

// MarketSummary is the opening block of a digest
type MarketSummary struct {
	OvernightMoves OvernightMoves `json:"overnight_moves"`
	KeyDriver      string         `json:"key_driver"`
}

// Pick is the top recommendation of the day
type Pick struct {
	Ticker           string         `json:"ticker"`
	Name             string         `json:"name"`
	Action           scorers.Action `json:"action"`
	Reasoning        string         `json:"reasoning"`
	Catalyst         string         `json:"catalyst"`
	Price            float64        `json:"price"`
	TotalScore       float64        `json:"total_score"`
	TechnicalScore   float64        `json:"technical_score"`
	FundamentalScore float64        `json:"fundamental_score"`
	CatalystScore    float64        `json:"catalyst_score"`
}

// WatchItem is a runner-up worth monitoring
type WatchItem struct {
	Ticker string         `json:"ticker"`
	Action scorers.Action `json:"action"`
	Reason string         `json:"reason"`
	Score  float64        `json:"score"`
}

// KeyEvent is a scheduled event on the digest date
type KeyEvent struct {
	Ticker         string `json:"ticker,omitempty"`
	Time           string `json:"time"`
	Event          string `json:"event"`
	ExpectedImpact string `json:"expected_impact"`
}

// Digest is the daily market intelligence summary
type Digest struct {
	GeneratedAt       time.Time                 `json:"generated_at"`
	TopRecommendation *Pick                     `json:"top_recommendation"`
	ID                string                    `json:"id"`
	Date              string                    `json:"date"`
	MarketSummary     MarketSummary             `json:"market_summary"`
	WatchList         []WatchItem               `json:"watch_list"`
	KeyEvents         []KeyEvent                `json:"key_events"`
	MacroContext      []domain.MacroObservation `json:"macro_context"`
	Rankings          []Record                  `json:"rankings"`
	Warnings          []string                  `json:"warnings,omitempty"`
}

// Record is one ranked recommendation captured with a digest
type Record struct {
	CreatedAt        time.Time      `json:"created_at"`
	ID               string         `json:"id"`
	DigestID         string         `json:"digest_id"`
	DigestDate       string         `json:"digest_date"`
	Ticker           string         `json:"ticker"`
	Action           scorers.Action `json:"action"`
	Rank             int            `json:"rank"`
	TotalScore       float64        `json:"total_score"`
	TechnicalScore   float64        `json:"technical_score"`
	FundamentalScore float64        `json:"fundamental_score"`
	CatalystScore    float64        `json:"catalyst_score"`
	Price            float64        `json:"price"`
}

// PickPerformance is the outcome of a past top pick
type PickPerformance struct {
	Date         string         `json:"date"`
	Ticker       string         `json:"ticker"`
	Action       scorers.Action `json:"action"`
	EntryPrice   float64        `json:"entry_price"`
	CurrentPrice float64        `json:"current_price"`
	ReturnPct    float64        `json:"return_pct"`
}

// Performance is the track record of past top picks
type Performance struct {
	TotalRecommendations int               `json:"total_recommendations"`
	WinRate              float64           `json:"win_rate"`
	AverageReturn        float64           `json:"average_return"`
	SharpeRatio          float64           `json:"sharpe_ratio"`
	VsSP500              float64           `json:"vs_sp500"`
	RecentPicks          []PickPerformance `json:"recent_picks"`
}

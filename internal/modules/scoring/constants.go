// Package scoring holds the thresholds and weights used by the recommendation scorers.
package scoring

// =============================================================================
// Score bounds
// =============================================================================

const (
	MinScore = 0.0
	MaxScore = 10.0
)

// =============================================================================
// Technical Score Constants
// =============================================================================

const (
	RSILength  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
	SMAShort   = 50
	SMALong    = 200

	// RSI ladder. 30 <= RSI < 40 falls through every band and earns nothing.
	RSIHealthyLow  = 40.0
	RSIHealthyHigh = 70.0
	RSIOversold    = 30.0
	RSIOverbought  = 70.0

	RSIHealthyPoints    = 3.0
	RSIOversoldPoints   = 1.5
	RSIOverboughtPoints = 1.0

	StrongUptrendPoints = 4.0 // close > SMA50 > SMA200
	AboveShortMAPoints  = 2.0 // close > SMA50 only

	RecentVolumeWindow = 5
	VolumeSurgeRatio   = 1.2
	VolumeSurgePoints  = 3.0
)

// =============================================================================
// Fundamental Score Constants
// =============================================================================

const (
	PEFairLow    = 10.0
	PEFairHigh   = 25.0
	PECheapLow   = 5.0
	PERichHigh   = 35.0
	PEFairPoints = 3.0
	PENearPoints = 1.5

	ROEStrong       = 0.15
	ROEGood         = 0.10
	ROEStrongPoints = 3.0
	ROEGoodPoints   = 2.0

	RevenueGrowthStrong       = 0.15
	RevenueGrowthGood         = 0.05
	RevenueGrowthStrongPoints = 4.0
	RevenueGrowthGoodPoints   = 2.0
)

// =============================================================================
// Catalyst Score Constants
// =============================================================================

const (
	NewsWindow           = 10 // only the first N articles feed the catalyst score
	NewsStrongSentiment  = 0.3
	NewsStrongPoints     = 3.0
	NewsPositivePoints   = 1.5
	MaterialFilingPoints = 3.0
	EPSBeatStrong        = 5.0
	EPSBeatStrongPoints  = 4.0
	EPSBeatPoints        = 2.0
)

// =============================================================================
// Composite Constants
// =============================================================================

const (
	DefaultTechnicalWeight   = 0.4
	DefaultFundamentalWeight = 0.4
	DefaultCatalystWeight    = 0.2

	StrongBuyThreshold = 8.0
	BuyThreshold       = 6.5
	HoldThreshold      = 5.0
	WatchThreshold     = 3.0
)

// =============================================================================
// Attribution Constants
// =============================================================================

const (
	EarningsSurpriseNotable  = 3.0 // |surprise| above this is worth mentioning
	AttributionSentimentBand = 0.3
)

package scorers

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring"
)

// Attributor explains a price move from the events around it
type Attributor struct{}

// NewAttributor creates a new attributor
func NewAttributor() *Attributor {
	return &Attributor{}
}

// Reasons lists the catalyst fragments for an event snapshot.
// Order is fixed: earnings, material filings, news sentiment, analyst actions.
func (a *Attributor) Reasons(events domain.EventsSnapshot) []string {
	var reasons []string

	if e := events.Earnings; e != nil && math.Abs(e.EPSSurprisePercent) > scoring.EarningsSurpriseNotable {
		verb := "missed"
		if e.EPSSurprisePercent > 0 {
			verb = "beat"
		}
		reasons = append(reasons, fmt.Sprintf("Earnings %s by %.1f%%", verb, math.Abs(e.EPSSurprisePercent)))
	}

	if n := len(events.Filings8K); n > 0 {
		reasons = append(reasons, fmt.Sprintf("Filed %d material event(s)", n))
	}

	// Unlike the catalyst score, every article counts here
	if len(events.News) > 0 {
		avg := meanSentiment(events.News)
		switch {
		case avg > scoring.AttributionSentimentBand:
			reasons = append(reasons, "Strong positive news sentiment")
		case avg < -scoring.AttributionSentimentBand:
			reasons = append(reasons, "Negative news sentiment")
		}
	}

	if len(events.AnalystActions) > 0 {
		reasons = append(reasons, "Analyst upgrade(s): "+strings.Join(events.AnalystActions, ", "))
	}

	return reasons
}

// Explain renders the move explanation with an explicitly signed percentage
func (a *Attributor) Explain(ticker string, priceChangePercent float64, events domain.EventsSnapshot) string {
	reasons := a.Reasons(events)
	if len(reasons) == 0 {
		return fmt.Sprintf("%s moved %+.1f%% (no clear catalyst identified)", ticker, priceChangePercent)
	}
	return fmt.Sprintf("%s moved %+.1f%% due to: %s", ticker, priceChangePercent, strings.Join(reasons, ", "))
}

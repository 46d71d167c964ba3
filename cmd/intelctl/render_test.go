package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/modules/digest"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
)

func TestWriteAnalysis(t *testing.T) {
	var buf bytes.Buffer
	err := writeAnalysis(&buf, &stocks.Analysis{
		Ticker: "NVDA",
		Recommendation: scorers.Recommendation{
			Action:         scorers.ActionBuy,
			TotalScore:     7.9,
			TechnicalScore: 10,
		},
		Warnings: []string{"news: provider not configured"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NVDA")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "7.90")
	assert.Contains(t, out, "news: provider not configured")
}

func TestWriteMove(t *testing.T) {
	var buf bytes.Buffer
	err := writeMove(&buf, &stocks.MoveExplanation{
		Explanation: "NVDA moved +8.2% due to: Earnings beat by 12.3%",
		Reasons:     []string{"Earnings beat by 12.3%"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "NVDA moved +8.2%")
	assert.Contains(t, buf.String(), "- Earnings beat by 12.3%")
}

func TestWriteDigest(t *testing.T) {
	var buf bytes.Buffer
	err := writeDigest(&buf, &digest.Digest{
		Date:              "2024-09-10",
		TopRecommendation: &digest.Pick{Ticker: "NVDA", Name: "NVIDIA", Action: scorers.ActionStrongBuy, TotalScore: 8.2},
		WatchList:         []digest.WatchItem{{Ticker: "MSFT", Action: scorers.ActionBuy, Score: 7}},
		Rankings:          []digest.Record{{Rank: 1, Ticker: "NVDA"}, {Rank: 2, Ticker: "MSFT"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Digest 2024-09-10")
	assert.Contains(t, out, "NVDA (NVIDIA)")
	assert.Contains(t, out, "WATCH LIST")
	assert.NotContains(t, out, "EVENT", "empty sections are omitted")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"count": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["count"])
}

func TestWeightOverrides(t *testing.T) {
	defaults := scorers.DefaultWeights()

	cmd := &cobra.Command{}
	cmd.Flags().Float64Var(&scoreTechnical, "technical", 0, "")
	cmd.Flags().Float64Var(&scoreFundamental, "fundamental", 0, "")
	cmd.Flags().Float64Var(&scoreCatalyst, "catalyst", 0, "")
	assert.Nil(t, weightOverrides(cmd, defaults))

	require.NoError(t, cmd.Flags().Set("catalyst", "0.5"))
	w := weightOverrides(cmd, defaults)
	require.NotNil(t, w)
	assert.Equal(t, 0.5, w.Catalyst)
	assert.Equal(t, defaults.Technical, w.Technical)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["score"])
	assert.True(t, names["why"])
	assert.True(t, names["digest"])
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aristath/marketintel/internal/modules/digest"
	"github.com/aristath/marketintel/internal/modules/stocks"
)

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeAnalysis(out io.Writer, a *stocks.Analysis) error {
	rec := a.Recommendation
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Ticker\t%s\n", a.Ticker)
	fmt.Fprintf(w, "Price\t%.2f\n", a.Price())
	fmt.Fprintf(w, "Action\t%s\n", rec.Action)
	fmt.Fprintf(w, "Total\t%.2f\n", rec.TotalScore)
	fmt.Fprintf(w, "Technical\t%.2f\n", rec.TechnicalScore)
	fmt.Fprintf(w, "Fundamental\t%.2f\n", rec.FundamentalScore)
	fmt.Fprintf(w, "Catalyst\t%.2f\n", rec.CatalystScore)
	fmt.Fprintf(w, "Trend\t%s\n", stocks.TrendLabel(a.Technical.Indicators))
	writeWarnings(w, a.Warnings)

	return w.Flush()
}

func writeMove(out io.Writer, m *stocks.MoveExplanation) error {
	fmt.Fprintln(out, m.Explanation)
	for _, r := range m.Reasons {
		fmt.Fprintf(out, "  - %s\n", r)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeWarnings(w, m.Warnings)
	return w.Flush()
}

func writeDigest(out io.Writer, d *digest.Digest) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Digest %s\n", d.Date)
	fmt.Fprintf(w, "Key driver\t%s\n", d.MarketSummary.KeyDriver)
	if p := d.TopRecommendation; p != nil {
		fmt.Fprintf(w, "Top pick\t%s (%s)\t%s\t%.2f\n", p.Ticker, p.Name, p.Action, p.TotalScore)
		fmt.Fprintf(w, "\t%s\n", p.Reasoning)
		fmt.Fprintf(w, "\tCatalyst: %s\n", p.Catalyst)
	}

	if len(d.WatchList) > 0 {
		fmt.Fprintln(w, "\nWATCH LIST\tACTION\tSCORE\tREASON")
		for _, item := range d.WatchList {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", item.Ticker, item.Action, item.Score, item.Reason)
		}
	}

	if len(d.KeyEvents) > 0 {
		fmt.Fprintln(w, "\nEVENT\tTIME\tIMPACT")
		for _, e := range d.KeyEvents {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Event, e.Time, e.ExpectedImpact)
		}
	}

	fmt.Fprintln(w, "\nRANK\tTICKER\tACTION\tTOTAL\tPRICE")
	for _, r := range d.Rankings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\n", r.Rank, r.Ticker, r.Action, r.TotalScore, r.Price)
	}
	writeWarnings(w, d.Warnings)

	return w.Flush()
}

func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "Warnings\t%s\n", strings.Join(warnings, "; "))
}

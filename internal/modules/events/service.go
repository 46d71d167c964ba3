// Package events serves the earnings calendar, recent filings, insider trades and macro releases.
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/clients/edgar"
	"github.com/aristath/marketintel/internal/domain"
)

const (
	// DefaultCalendarDays is the earnings calendar window when no end date is given
	DefaultCalendarDays = 7
	// DefaultFilingsDays is the recent filings lookback
	DefaultFilingsDays = 7
	// DefaultInsiderDays is the insider trading lookback
	DefaultInsiderDays = 30

	maxCalendarDays = 90
	fanOut          = 4
)

// ErrInvalidRange is returned for an end date before the start date or a window that is too wide
var ErrInvalidRange = errors.New("invalid date range")

// CompanyDirectory resolves tickers to registrant names
type CompanyDirectory interface {
	LookupCIK(ctx context.Context, ticker string) (*edgar.Company, error)
}

// InsiderProvider supplies Form 4 filings
type InsiderProvider interface {
	InsiderTransactions(ctx context.Context, ticker string, since time.Time) ([]domain.Filing, error)
}

// MacroSource reads several economic series at once, skipping failures
type MacroSource interface {
	LatestAll(ctx context.Context, seriesIDs []string) []domain.MacroObservation
}

// Dependencies are the providers behind the events service. Companies may be nil.
type Dependencies struct {
	Calendar  domain.EarningsProvider
	Filings   domain.FilingsProvider
	Insiders  InsiderProvider
	Macro     MacroSource
	Companies CompanyDirectory
}

// Service aggregates market events across providers
type Service struct {
	deps        Dependencies
	universe    []string
	macroSeries []string
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a new events service. The universe is scanned for filings when no ticker is given.
func NewService(deps Dependencies, universe, macroSeries []string, log zerolog.Logger) *Service {
	return &Service{
		deps:        deps,
		universe:    universe,
		macroSeries: macroSeries,
		now:         time.Now,
		log:         log.With().Str("service", "events").Logger(),
	}
}

// Today returns the current UTC calendar day
func (s *Service) Today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// EarningsCalendar returns announcements between from and to inclusive. An unconfigured provider yields an empty calendar.
func (s *Service) EarningsCalendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	if to.Before(from) || to.Sub(from) > maxCalendarDays*24*time.Hour {
		return nil, fmt.Errorf("%s to %s: %w", from.Format(time.DateOnly), to.Format(time.DateOnly), ErrInvalidRange)
	}

	events, err := s.deps.Calendar.EarningsCalendar(ctx, from, to)
	if errors.Is(err, clients.ErrNotConfigured) {
		s.log.Debug().Msg("Earnings calendar provider not configured")
		return []domain.EarningsEvent{}, nil
	}
	if err != nil {
		return nil, err
	}

	if s.deps.Companies != nil {
		for i := range events {
			if events[i].Company != "" {
				continue
			}
			if company, err := s.deps.Companies.LookupCIK(ctx, events[i].Ticker); err == nil {
				events[i].Company = company.Title
			}
		}
	}
	return events, nil
}

// RecentFilings returns filings newer than days. With no ticker every universe ticker is scanned.
func (s *Service) RecentFilings(ctx context.Context, ticker, formType string, days int) ([]domain.Filing, error) {
	if days <= 0 {
		days = DefaultFilingsDays
	}
	since := s.now().AddDate(0, 0, -days)

	if ticker != "" {
		return s.deps.Filings.Filings(ctx, ticker, formType, since)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all = []domain.Filing{}
	)
	sem := make(chan struct{}, fanOut)
	for _, t := range s.universe {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			filings, err := s.deps.Filings.Filings(ctx, t, formType, since)
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", t).Msg("Failed to get filings")
				return
			}
			mu.Lock()
			all = append(all, filings...)
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Date.Equal(all[j].Date) {
			return all[i].Ticker < all[j].Ticker
		}
		return all[i].Date.After(all[j].Date)
	})
	return all, nil
}

// InsiderTrading returns Form 4 filings for ticker newer than days
func (s *Service) InsiderTrading(ctx context.Context, ticker string, days int) ([]domain.Filing, error) {
	if days <= 0 {
		days = DefaultInsiderDays
	}
	return s.deps.Insiders.InsiderTransactions(ctx, ticker, s.now().AddDate(0, 0, -days))
}

// Macro returns the latest value of each tracked economic series
func (s *Service) Macro(ctx context.Context) []domain.MacroObservation {
	return s.deps.Macro.LatestAll(ctx, s.macroSeries)
}

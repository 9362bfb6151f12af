package marketdata

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoData means the provider answered but carried no rows for the symbol.
	ErrNoData = errors.New("no data for symbol")

	// ErrInsufficientData means the series is too short for statistics.
	ErrInsufficientData = errors.New("at least 2 data points required")
)

// PriceBar is one day of trading for a symbol.
type PriceBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// PriceSeries is the canonical date-sorted daily price table for one symbol.
// Bars are strictly ascending by date with no duplicates.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

// Len returns the number of bars in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Stats holds the derived risk/return pair for one symbol, both expressed as
// percentages rounded to two decimals. The fields are nil together on failure,
// never one without the other.
type Stats struct {
	Volatility     *float64 `json:"volatility"`
	ExpectedReturn *float64 `json:"expectedReturn"`
}

// Valid reports whether both statistics are present.
func (s Stats) Valid() bool {
	return s.Volatility != nil && s.ExpectedReturn != nil
}

// StatsMap maps an uppercased symbol to its statistics.
type StatsMap map[string]Stats

// Provider fetches raw daily price history for symbols over a lookback period.
// Each implementation owns its own period-token vocabulary and its own cache
// namespace; period strings are never shared across providers.
//
// FetchDaily returns a mapping with an entry per symbol that yielded data. A
// symbol whose fetch or parse failed is simply absent from the result; only a
// whole-batch failure returns an error.
type Provider interface {
	Name() string
	DefaultPeriod() string
	ValidatePeriod(period string) error
	FetchDaily(ctx context.Context, symbols []string, period string) (map[string]*PriceSeries, error)
}

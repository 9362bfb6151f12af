// Package statsvc orchestrates the fetch-cache-compute pipeline: consult the
// freshness cache, fetch raw history from the provider on a miss, normalize,
// derive statistics and persist them back to the cache.
package statsvc

import (
	"context"
	"strings"

	"github.com/wonny/volsync/internal/marketdata"
	"github.com/wonny/volsync/internal/statscache"
	"github.com/wonny/volsync/pkg/logger"
)

// Service computes volatility and expected return for batches of symbols.
// Symbols are processed sequentially; a single symbol's failure degrades to
// null statistics for that symbol and never aborts the batch.
type Service struct {
	provider marketdata.Provider
	cache    *statscache.Cache
	logger   *logger.Logger
}

// New creates a statistics service on top of a provider and a cache.
func New(provider marketdata.Provider, cache *statscache.Cache, log *logger.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		logger:   log,
	}
}

// Provider returns the underlying provider.
func (s *Service) Provider() marketdata.Provider {
	return s.provider
}

// Stats returns statistics for the requested symbols over the lookback
// period, get-or-compute. Cached values are served only when every requested
// symbol is covered by a fresh cache file; otherwise the entire batch is
// refetched and the cache rewritten.
//
// The returned map always has an entry per requested symbol; failed symbols
// carry null statistics.
func (s *Service) Stats(ctx context.Context, symbols []string, period string) marketdata.StatsMap {
	symbols = canonical(symbols)

	if cached, ok := s.cache.Lookup(s.provider.Name(), period, symbols); ok {
		s.logger.WithFields(map[string]interface{}{
			"provider": s.provider.Name(),
			"period":   period,
			"symbols":  len(symbols),
		}).Debug("Serving statistics from cache")
		return cached
	}

	s.logger.WithFields(map[string]interface{}{
		"provider": s.provider.Name(),
		"period":   period,
		"symbols":  symbols,
	}).Info("Fetching historical data")

	tables, err := s.provider.FetchDaily(ctx, symbols, period)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch data, returning empty results")
		return marketdata.StatsMap{}
	}

	results := make(marketdata.StatsMap, len(symbols))
	computed := make(marketdata.StatsMap)

	for _, symbol := range symbols {
		series, ok := tables[symbol]
		if !ok {
			s.logger.WithField("symbol", symbol).Warn("No data available")
			results[symbol] = marketdata.Stats{}
			continue
		}

		stats, err := marketdata.Compute(series)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Error processing symbol")
			results[symbol] = marketdata.Stats{}
			continue
		}

		results[symbol] = stats
		computed[symbol] = stats
	}

	s.cache.Store(s.provider.Name(), period, computed)

	return results
}

// canonical uppercases and de-duplicates symbols, preserving order.
func canonical(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	return out
}

package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wonny/volsync/internal/marketdata"
	"github.com/wonny/volsync/pkg/config"
	"github.com/wonny/volsync/pkg/httputil"
	"github.com/wonny/volsync/pkg/logger"
)

// Period tokens are duration strings as the chart API expects them: 1y, 5y,
// 6mo, 5d, max. Not interchangeable with Nasdaq-coded tokens.
var periodPattern = regexp.MustCompile(`^(\d+(d|mo|y)|max|ytd)$`)

// Client fetches historical daily prices from the Yahoo Finance chart API.
// The API serves one symbol per request; multi-symbol batches are normalized
// to a symbol-to-series mapping here so callers never see the difference.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// chartResponse is the v8 chart API response envelope.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewClient creates a new Yahoo Finance client.
func NewClient(cfg *config.Config, log *logger.Logger, httpClient *httputil.Client) *Client {
	return &Client{
		httpClient: httpClient.WithRateLimit(cfg.RequestDelay),
		logger:     log,
		baseURL:    cfg.Yahoo.BaseURL,
	}
}

// Name returns the cache namespace for this provider.
func (c *Client) Name() string { return "yahoo" }

// DefaultPeriod returns the default lookback period token.
func (c *Client) DefaultPeriod() string { return "1y" }

// ValidatePeriod checks a period token against the chart API vocabulary.
func (c *Client) ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return fmt.Errorf("%q is not a yahoo period token (expected e.g. 1y, 5y, 6mo)", period)
	}
	return nil
}

// FetchDaily fetches daily price history for each symbol. A failed symbol is
// logged and left out of the result.
func (c *Client) FetchDaily(ctx context.Context, symbols []string, period string) (map[string]*marketdata.PriceSeries, error) {
	if err := c.ValidatePeriod(period); err != nil {
		return nil, err
	}

	result := make(map[string]*marketdata.PriceSeries, len(symbols))
	for _, symbol := range symbols {
		series, err := c.fetchSymbol(ctx, symbol, period)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Yahoo fetch failed")
			continue
		}
		result[symbol] = series
	}
	return result, nil
}

// fetchSymbol downloads one symbol's history from the chart API.
func (c *Client) fetchSymbol(ctx context.Context, symbol, period string) (*marketdata.PriceSeries, error) {
	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.baseURL, url.PathEscape(strings.ToUpper(symbol)), period)

	resp, err := c.httpClient.Get(ctx, chartURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	series, err := c.parseChart(strings.ToUpper(symbol), body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   series.Len(),
	}).Debug("Fetched Yahoo history")
	return series, nil
}

// parseChart converts a chart API payload to a canonical PriceSeries.
func (c *Client) parseChart(symbol string, body []byte) (*marketdata.PriceSeries, error) {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s (%s)",
			chart.Chart.Error.Code, chart.Chart.Error.Description)
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, marketdata.ErrNoData
	}

	res := chart.Chart.Result[0]
	quote := res.Indicators.Quote[0]

	var adjClose []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adjClose = res.Indicators.AdjClose[0].AdjClose
	}

	series := &marketdata.PriceSeries{Symbol: symbol, Bars: make([]marketdata.PriceBar, 0, len(res.Timestamp))}
	for i, ts := range res.Timestamp {
		closePrice, ok := at(quote.Close, i)
		if !ok {
			// Null close, usually a halted or partial session. Skip.
			continue
		}

		bar := marketdata.PriceBar{
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close:    closePrice,
			AdjClose: closePrice,
		}
		if v, ok := at(quote.Open, i); ok {
			bar.Open = v
		}
		if v, ok := at(quote.High, i); ok {
			bar.High = v
		}
		if v, ok := at(quote.Low, i); ok {
			bar.Low = v
		}
		if v, ok := at(adjClose, i); ok {
			bar.AdjClose = v
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}

		series.Bars = append(series.Bars, bar)
	}

	if series.Len() == 0 {
		return nil, marketdata.ErrNoData
	}

	// The API answers oldest first already, sorting keeps the guarantee.
	sort.SliceStable(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})

	return series, nil
}

// at dereferences values[i], reporting false for out-of-range or null.
func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

package nasdaq

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wonny/volsync/internal/marketdata"
	"github.com/wonny/volsync/pkg/config"
	"github.com/wonny/volsync/pkg/httputil"
	"github.com/wonny/volsync/pkg/logger"
)

// debugSnippetLen caps how much of an unparsable payload is kept for debugging.
const debugSnippetLen = 1000

// Period tokens are Nasdaq-coded: y5 = five years, m6 = six months, d5 = five
// days. This vocabulary is not interchangeable with other providers.
var periodPattern = regexp.MustCompile(`^(y\d{1,2}|m\d{1,2}|d\d{1,3})$`)

// Client fetches historical daily prices from the Nasdaq CSV download API.
// Requests go out one symbol at a time with a polite delay in between, since
// the endpoint throttles automated traffic.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	debugDir   string
	dataDir    string
}

// NewClient creates a new Nasdaq client.
func NewClient(cfg *config.Config, log *logger.Logger, httpClient *httputil.Client) *Client {
	return &Client{
		httpClient: httpClient.WithRateLimit(cfg.RequestDelay),
		logger:     log,
		baseURL:    cfg.Nasdaq.BaseURL,
		debugDir:   cfg.DebugDir,
		dataDir:    cfg.DataDir,
	}
}

// Name returns the cache namespace for this provider.
func (c *Client) Name() string { return "nasdaq" }

// DefaultPeriod returns the default lookback period token.
func (c *Client) DefaultPeriod() string { return "y5" }

// ValidatePeriod checks a period token against the Nasdaq vocabulary.
func (c *Client) ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return fmt.Errorf("%q is not a nasdaq period token (expected e.g. y5, m6, d5)", period)
	}
	return nil
}

// FetchDaily fetches daily price history for each symbol. A symbol whose
// download or parse fails is logged and left out of the result, it never
// aborts its siblings.
func (c *Client) FetchDaily(ctx context.Context, symbols []string, period string) (map[string]*marketdata.PriceSeries, error) {
	if err := c.ValidatePeriod(period); err != nil {
		return nil, err
	}

	result := make(map[string]*marketdata.PriceSeries, len(symbols))
	for _, symbol := range symbols {
		series, err := c.fetchSymbol(ctx, symbol, period)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Nasdaq fetch failed")
			continue
		}
		result[symbol] = series

		if c.dataDir != "" {
			if _, err := marketdata.WriteSeriesCSV(c.dataDir, series); err != nil {
				c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to save series")
			}
		}
	}
	return result, nil
}

// fetchSymbol downloads and normalizes one symbol's history.
func (c *Client) fetchSymbol(ctx context.Context, symbol, period string) (*marketdata.PriceSeries, error) {
	downloadURL := fmt.Sprintf("%s/api/v1/historical/%s/stocks/%s",
		c.baseURL, strings.ToLower(symbol), period)

	resp, err := c.httpClient.Get(ctx, downloadURL)
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

	csvText, shape := marketdata.ExtractCSV(resp.Header.Get("Content-Type"), body)

	series, err := marketdata.ParseDailyCSV(strings.ToUpper(symbol), csvText)
	if err != nil {
		c.dumpDebug(symbol, csvText)
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   series.Len(),
		"shape":  shape,
	}).Debug("Fetched Nasdaq history")
	return series, nil
}

// dumpDebug persists the head of an unparsable payload for inspection.
// Best effort, failures are only logged.
func (c *Client) dumpDebug(symbol, content string) {
	if c.debugDir == "" {
		return
	}

	if err := os.MkdirAll(c.debugDir, 0o755); err != nil {
		c.logger.WithError(err).Warn("Failed to create debug dir")
		return
	}

	if len(content) > debugSnippetLen {
		content = content[:debugSnippetLen]
	}

	path := filepath.Join(c.debugDir, fmt.Sprintf("%s_response.txt", strings.ToUpper(symbol)))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		c.logger.WithError(err).Warn("Failed to write debug file")
	}
}

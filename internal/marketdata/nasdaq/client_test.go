package nasdaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/volsync/pkg/config"
	"github.com/wonny/volsync/pkg/httputil"
	"github.com/wonny/volsync/pkg/logger"
)

const sampleCSV = "Date, Close/Last, Volume, Open, High, Low\n" +
	"05/17/2024, $177.58, 71812260, $174.93, $178.2399, $174.42\n" +
	"05/16/2024, $174.84, 74550420, $177.53, $178.15, $173.54\n"

func testSetup(t *testing.T, baseURL string) (*config.Config, *logger.Logger, *httputil.Client) {
	t.Helper()
	cfg := &config.Config{
		Env:          "development",
		LogLevel:     "error",
		LogFormat:    "json",
		HTTPTimeout:  5 * time.Second,
		RequestDelay: time.Second,
		DebugDir:     t.TempDir(),
		Nasdaq:       config.ProviderConfig{BaseURL: baseURL},
	}
	log := logger.New(cfg)
	return cfg, log, httputil.New(cfg, log).DisableRetry()
}

func TestFetchDailyCSVBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/v1/historical/aapl/stocks/y5")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	cfg, log, hc := testSetup(t, server.URL)
	client := NewClient(cfg, log, hc)

	result, err := client.FetchDaily(context.Background(), []string{"AAPL"}, "y5")
	require.NoError(t, err)
	require.Contains(t, result, "AAPL")

	series := result["AAPL"]
	assert.Equal(t, 2, series.Len())
	assert.Equal(t, "AAPL", series.Symbol)
	// Oldest first
	assert.True(t, series.Bars[0].Date.Before(series.Bars[1].Date))
}

func TestFetchDailyJSONWrappedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": "Date,Close/Last\n05/17/2024,$10.00\n05/16/2024,$9.00\n"}`))
	}))
	defer server.Close()

	cfg, log, hc := testSetup(t, server.URL)
	client := NewClient(cfg, log, hc)

	result, err := client.FetchDaily(context.Background(), []string{"XYZ"}, "y1")
	require.NoError(t, err)
	require.Contains(t, result, "XYZ")
	assert.Equal(t, 2, result["XYZ"].Len())
}

func TestFetchDailyPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/bad/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	cfg, log, hc := testSetup(t, server.URL)
	client := NewClient(cfg, log, hc)

	result, err := client.FetchDaily(context.Background(), []string{"GOOD", "BAD"}, "y5")
	require.NoError(t, err, "one failed symbol must not abort the batch")

	assert.Contains(t, result, "GOOD")
	assert.NotContains(t, result, "BAD")
}

func TestFetchDailyDumpsDebugOnParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>blocked</html>"))
	}))
	defer server.Close()

	cfg, log, hc := testSetup(t, server.URL)
	client := NewClient(cfg, log, hc)

	result, err := client.FetchDaily(context.Background(), []string{"XYZ"}, "y5")
	require.NoError(t, err)
	assert.NotContains(t, result, "XYZ")

	data, err := os.ReadFile(filepath.Join(cfg.DebugDir, "XYZ_response.txt"))
	require.NoError(t, err, "expected debug dump for unparsable payload")
	assert.Contains(t, string(data), "blocked")
}

func TestValidatePeriod(t *testing.T) {
	cfg, log, hc := testSetup(t, "http://localhost")
	client := NewClient(cfg, log, hc)

	tests := []struct {
		period string
		valid  bool
	}{
		{"y5", true},
		{"y10", true},
		{"m6", true},
		{"d5", true},
		{"5y", false}, // duration vocabulary belongs to other providers
		{"1y", false},
		{"", false},
	}

	for _, tt := range tests {
		err := client.ValidatePeriod(tt.period)
		if tt.valid {
			assert.NoError(t, err, "period %q", tt.period)
		} else {
			assert.Error(t, err, "period %q", tt.period)
		}
	}
}

func TestFetchDailySavesSeriesWhenDataDirSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	cfg, log, hc := testSetup(t, server.URL)
	cfg.DataDir = t.TempDir()
	client := NewClient(cfg, log, hc)

	_, err := client.FetchDaily(context.Background(), []string{"AAPL"}, "y5")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.DataDir, "AAPL.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Adj Close")
}

package marketdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// WriteSeriesCSV saves a canonical price series under dir as SYMBOL.csv for
// later offline use. The directory is created if needed.
func WriteSeriesCSV(dir string, series *PriceSeries) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, series.Symbol+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume", "Adj Close"}); err != nil {
		return "", err
	}

	for _, bar := range series.Bars {
		record := []string{
			bar.Date.Format("2006-01-02"),
			formatPrice(bar.Open),
			formatPrice(bar.High),
			formatPrice(bar.Low),
			formatPrice(bar.Close),
			strconv.FormatInt(bar.Volume, 10),
			formatPrice(bar.AdjClose),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return path, w.Error()
}

// seriesRecord is the JSON export shape for one bar.
type seriesRecord struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	AdjClose float64 `json:"adjClose"`
}

// WriteSeriesJSON saves a canonical price series under dir as SYMBOL.json.
func WriteSeriesJSON(dir string, series *PriceSeries) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	records := make([]seriesRecord, 0, len(series.Bars))
	for _, bar := range series.Bars {
		records = append(records, seriesRecord{
			Date:     bar.Date.Format(time.RFC3339),
			Open:     zeroNaN(bar.Open),
			High:     zeroNaN(bar.High),
			Low:      zeroNaN(bar.Low),
			Close:    zeroNaN(bar.Close),
			Volume:   bar.Volume,
			AdjClose: zeroNaN(bar.AdjClose),
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, series.Symbol+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// zeroNaN maps a missing price to 0 so the record stays valid JSON.
func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

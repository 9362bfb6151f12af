package marketdata

import (
	"errors"
	"math"
	"testing"
)

const nasdaqCSV = `Date, Close/Last, Volume, Open, High, Low
05/17/2024, $177.58, 71812260, $174.93, $178.2399, $174.42
05/16/2024, $174.84, 74550420, $177.53, $178.15, $173.54
05/15/2024, $173.99, 82358660, $171.19, $174.72, $170.95
`

func TestExtractCSV(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantShape   string
		wantCSV     string
	}{
		{
			name:        "csv content type passes through",
			contentType: "text/csv; charset=utf-8",
			body:        "Date,Close\n05/17/2024,$10.00\n",
			wantShape:   shapeCSV,
			wantCSV:     "Date,Close\n05/17/2024,$10.00\n",
		},
		{
			name:        "json wrapped csv",
			contentType: "application/json",
			body:        `{"data": "Date,Close\n05/17/2024,$10.00\n"}`,
			wantShape:   shapeJSONWrapped,
			wantCSV:     "Date,Close\n05/17/2024,$10.00\n",
		},
		{
			name:        "json without data field falls back to raw text",
			contentType: "application/json",
			body:        `{"error": "rate limited"}`,
			wantShape:   shapePlainText,
			wantCSV:     `{"error": "rate limited"}`,
		},
		{
			name:        "invalid json falls back to raw text",
			contentType: "text/html",
			body:        "Date,Close\n05/17/2024,$10.00\n",
			wantShape:   shapePlainText,
			wantCSV:     "Date,Close\n05/17/2024,$10.00\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCSV, gotShape := ExtractCSV(tt.contentType, []byte(tt.body))
			if gotShape != tt.wantShape {
				t.Errorf("ExtractCSV() shape = %q, want %q", gotShape, tt.wantShape)
			}
			if gotCSV != tt.wantCSV {
				t.Errorf("ExtractCSV() csv = %q, want %q", gotCSV, tt.wantCSV)
			}
		})
	}
}

func TestParseDailyCSV(t *testing.T) {
	series, err := ParseDailyCSV("AAPL", nasdaqCSV)
	if err != nil {
		t.Fatalf("ParseDailyCSV() failed: %v", err)
	}

	if series.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", series.Symbol)
	}

	if series.Len() != 3 {
		t.Fatalf("got %d bars, want 3", series.Len())
	}

	// Rows must come out oldest first regardless of raw order
	for i := 1; i < series.Len(); i++ {
		if !series.Bars[i-1].Date.Before(series.Bars[i].Date) {
			t.Errorf("bars not sorted ascending at index %d", i)
		}
	}

	first := series.Bars[0]
	if first.Date.Format("2006-01-02") != "2024-05-15" {
		t.Errorf("first date = %s, want 2024-05-15", first.Date.Format("2006-01-02"))
	}
	if first.Close != 173.99 {
		t.Errorf("first close = %v, want 173.99 (currency symbol stripped)", first.Close)
	}
	if first.AdjClose != first.Close {
		t.Errorf("AdjClose = %v, want Close %v", first.AdjClose, first.Close)
	}
	if first.Volume != 82358660 {
		t.Errorf("volume = %d, want 82358660", first.Volume)
	}
	if first.Open != 171.19 {
		t.Errorf("open = %v, want 171.19", first.Open)
	}
}

func TestParseDailyCSVThousandsSeparators(t *testing.T) {
	csvText := "Date,Close/Last,Volume\n05/17/2024,\"$1,234.56\",1000\n05/16/2024,\"$1,230.00\",2000\n"

	series, err := ParseDailyCSV("BRK.A", csvText)
	if err != nil {
		t.Fatalf("ParseDailyCSV() failed: %v", err)
	}

	if series.Bars[1].Close != 1234.56 {
		t.Errorf("close = %v, want 1234.56", series.Bars[1].Close)
	}
}

func TestParseDailyCSVEmptyTable(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty body", ""},
		{"header only", "Date, Close/Last, Volume, Open, High, Low\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDailyCSV("XYZ", tt.csv)
			if !errors.Is(err, ErrNoData) {
				t.Errorf("ParseDailyCSV() error = %v, want ErrNoData", err)
			}
		})
	}
}

func TestParseDailyCSVColumnErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing date column", "Symbol,Close\nAAPL,$10.00\n"},
		{"missing close column", "Date,Volume\n05/17/2024,100\n"},
		{"garbage close value", "Date,Close/Last\n05/17/2024,not-a-price\n"},
		{"garbage date value", "Date,Close/Last\nyesterday,$10.00\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDailyCSV("XYZ", tt.csv)
			if err == nil {
				t.Error("ParseDailyCSV() expected error, got nil")
			}
			if errors.Is(err, ErrNoData) {
				t.Error("ParseDailyCSV() returned ErrNoData for a malformed table")
			}
		})
	}
}

func TestParseDailyCSVMissingPrices(t *testing.T) {
	csvText := "Date,Close/Last,Open\n05/17/2024,$10.00,\n05/16/2024,N/A,$9.00\n"

	series, err := ParseDailyCSV("XYZ", csvText)
	if err != nil {
		t.Fatalf("ParseDailyCSV() failed: %v", err)
	}

	if !math.IsNaN(series.Bars[0].Close) {
		t.Errorf("N/A close should be NaN, got %v", series.Bars[0].Close)
	}
	if !math.IsNaN(series.Bars[1].Open) {
		t.Errorf("empty open should be NaN, got %v", series.Bars[1].Open)
	}
}

package marketdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Raw payload shapes accepted from providers. A response is classified once
// and resolved to CSV text before normalization.
const (
	shapeCSV         = "csv"
	shapeJSONWrapped = "json-wrapped"
	shapePlainText   = "plain-text"
)

// jsonWrapper is the shape some endpoints use to wrap CSV text in JSON.
type jsonWrapper struct {
	Data string `json:"data"`
}

// ExtractCSV resolves a raw provider response body to CSV text.
//
// A CSV content type passes the body through untouched. Anything else is
// treated as possibly-JSON with the CSV under a "data" field, falling back to
// the raw text when JSON parsing fails or the field is absent.
func ExtractCSV(contentType string, body []byte) (csvText, shape string) {
	if strings.Contains(contentType, "text/csv") || strings.Contains(contentType, "application/csv") {
		return string(body), shapeCSV
	}

	var wrapper jsonWrapper
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Data != "" {
		return wrapper.Data, shapeJSONWrapped
	}

	return string(body), shapePlainText
}

// Header names recognized in raw price tables, matched by substring. The
// close candidates are ordered so that "Close/Last" wins over a bare "Close".
var (
	dateHeader      = "Date"
	closeCandidates = []string{"Close/Last", "Close"}
	openHeader      = "Open"
	highHeader      = "High"
	lowHeader       = "Low"
	volumeHeader    = "Volume"
)

// ParseDailyCSV parses raw CSV text into a canonical PriceSeries: fixed
// {Open, High, Low, Close, Volume, Adj Close} schema, rows sorted ascending
// by date, Adj Close equal to Close since the sources report no separate
// adjusted close.
//
// An empty table returns ErrNoData. A missing column or an unparsable value
// in a price column fails the whole table; callers degrade that to a
// per-symbol absence.
func ParseDailyCSV(symbol, csvText string) (*PriceSeries, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(csvText)))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrNoData
	}

	header := records[0]
	rows := records[1:]
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	dateCol := findColumn(header, dateHeader)
	if dateCol < 0 {
		return nil, fmt.Errorf("no date column in header %v", header)
	}

	closeCol := -1
	for _, candidate := range closeCandidates {
		if closeCol = findColumn(header, candidate); closeCol >= 0 {
			break
		}
	}
	if closeCol < 0 {
		return nil, fmt.Errorf("no close column in header %v", header)
	}

	openCol := findColumn(header, openHeader)
	highCol := findColumn(header, highHeader)
	lowCol := findColumn(header, lowHeader)
	volumeCol := findColumn(header, volumeHeader)

	series := &PriceSeries{Symbol: symbol, Bars: make([]PriceBar, 0, len(rows))}

	for i, row := range rows {
		date, err := parseDate(cell(row, dateCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		closePrice, err := parsePrice(cell(row, closeCol))
		if err != nil {
			return nil, fmt.Errorf("row %d close: %w", i+1, err)
		}

		bar := PriceBar{
			Date:     date,
			Close:    closePrice,
			AdjClose: closePrice,
			Volume:   parseVolume(cell(row, volumeCol)),
		}

		if bar.Open, err = parseOptionalPrice(cell(row, openCol)); err != nil {
			return nil, fmt.Errorf("row %d open: %w", i+1, err)
		}
		if bar.High, err = parseOptionalPrice(cell(row, highCol)); err != nil {
			return nil, fmt.Errorf("row %d high: %w", i+1, err)
		}
		if bar.Low, err = parseOptionalPrice(cell(row, lowCol)); err != nil {
			return nil, fmt.Errorf("row %d low: %w", i+1, err)
		}

		series.Bars = append(series.Bars, bar)
	}

	// Raw order is unspecified, usually newest first.
	sort.SliceStable(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})

	return series, nil
}

// findColumn returns the index of the first header containing name.
func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.Contains(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

var priceCleaner = strings.NewReplacer("$", "", ",", "")

// parsePrice converts a textual price to a float, stripping currency symbols
// and thousands separators. Empty and N/A cells become NaN so downstream
// return calculations can drop them.
func parsePrice(raw string) (float64, error) {
	cleaned := priceCleaner.Replace(raw)
	if cleaned == "" || strings.EqualFold(cleaned, "N/A") {
		return math.NaN(), nil
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return value, nil
}

// parseOptionalPrice is parsePrice for columns that may be missing entirely.
func parseOptionalPrice(raw string) (float64, error) {
	if raw == "" {
		return math.NaN(), nil
	}
	return parsePrice(raw)
}

func parseVolume(raw string) int64 {
	cleaned := priceCleaner.Replace(raw)
	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"2006/01/02",
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognized format", raw)
}

// Package settings reads and writes the stock settings document consumed by
// the application. Only the volatility and expectedReturn fields are owned
// here; every other field in the document passes through untouched.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/wonny/volsync/internal/marketdata"
	"github.com/wonny/volsync/pkg/logger"
)

var (
	// ErrSymbolExists is returned when adding a symbol already present.
	ErrSymbolExists = errors.New("symbol already exists in settings")
)

// StockEntry is one symbol's record in the settings document. Fields other
// than the two statistics are preserved verbatim across read-modify-write.
type StockEntry struct {
	Volatility     *float64
	ExpectedReturn *float64

	extra map[string]json.RawMessage
}

// NewStockEntry builds an entry from computed statistics.
func NewStockEntry(stats marketdata.Stats) *StockEntry {
	return &StockEntry{
		Volatility:     stats.Volatility,
		ExpectedReturn: stats.ExpectedReturn,
	}
}

// SetString sets an application field such as the company name.
func (e *StockEntry) SetString(key, value string) {
	if e.extra == nil {
		e.extra = make(map[string]json.RawMessage)
	}
	raw, _ := json.Marshal(value)
	e.extra[key] = raw
}

// UnmarshalJSON captures unknown fields so they survive a rewrite.
func (e *StockEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["volatility"]; ok {
		if err := json.Unmarshal(v, &e.Volatility); err != nil {
			return fmt.Errorf("volatility: %w", err)
		}
		delete(raw, "volatility")
	}
	if v, ok := raw["expectedReturn"]; ok {
		if err := json.Unmarshal(v, &e.ExpectedReturn); err != nil {
			return fmt.Errorf("expectedReturn: %w", err)
		}
		delete(raw, "expectedReturn")
	}

	e.extra = raw
	return nil
}

// MarshalJSON writes the two owned fields plus all preserved ones.
func (e *StockEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.extra)+2)
	for k, v := range e.extra {
		out[k] = v
	}

	var err error
	if out["volatility"], err = json.Marshal(e.Volatility); err != nil {
		return nil, err
	}
	if out["expectedReturn"], err = json.Marshal(e.ExpectedReturn); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// Document is the settings file: a stocks map plus any other top-level
// application fields, which pass through unmodified.
type Document struct {
	Stocks map[string]*StockEntry

	extra map[string]json.RawMessage
}

// Has reports whether a symbol is present.
func (d *Document) Has(symbol string) bool {
	_, ok := d.Stocks[symbol]
	return ok
}

// Symbols returns all symbols in the document.
func (d *Document) Symbols() []string {
	symbols := make([]string, 0, len(d.Stocks))
	for symbol := range d.Stocks {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// UnmarshalJSON captures unknown top-level fields for pass-through.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Stocks = make(map[string]*StockEntry)
	if v, ok := raw["stocks"]; ok {
		if err := json.Unmarshal(v, &d.Stocks); err != nil {
			return fmt.Errorf("stocks: %w", err)
		}
		delete(raw, "stocks")
	}

	d.extra = raw
	return nil
}

// MarshalJSON writes the stocks map plus all preserved top-level fields.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.extra)+1)
	for k, v := range d.extra {
		out[k] = v
	}

	var err error
	if out["stocks"], err = json.Marshal(d.Stocks); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// Store synchronizes computed statistics into the settings file. Every
// read-modify-write cycle runs under an advisory file lock so concurrent
// invocations cannot interleave.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *logger.Logger
}

// NewStore creates a store for the settings file at path.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: log,
	}
}

// Load reads and decodes the settings document.
func (s *Store) Load() (*Document, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock settings: %w", err)
	}
	defer s.lock.Unlock()

	return s.load()
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("error loading settings: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error loading settings: %w", err)
	}
	return &doc, nil
}

// save writes the document pretty-printed, via a temp file and rename so a
// failure never leaves a half-written settings file.
func (s *Store) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error saving settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error saving settings: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error saving settings: %w", err)
	}
	return nil
}

// AddStock inserts a new symbol with its statistics. The symbol must not
// already exist and the statistics must be non-null. name is optional.
func (s *Store) AddStock(symbol string, stats marketdata.Stats, name string) error {
	symbol = strings.ToUpper(symbol)

	if !stats.Valid() {
		return fmt.Errorf("failed to fetch data for %s", symbol)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	defer s.lock.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if doc.Has(symbol) {
		return fmt.Errorf("%w: %s", ErrSymbolExists, symbol)
	}

	entry := NewStockEntry(stats)
	if name != "" {
		entry.SetString("name", name)
	}

	if doc.Stocks == nil {
		doc.Stocks = make(map[string]*StockEntry)
	}
	doc.Stocks[symbol] = entry

	return s.save(doc)
}

// BulkUpdate overwrites the statistics of symbols already present in the
// document with freshly computed non-null values. Unknown symbols and null
// results are skipped silently; other fields are left untouched. Returns the
// number of updated symbols.
func (s *Store) BulkUpdate(stats marketdata.StatsMap) (int, error) {
	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock settings: %w", err)
	}
	defer s.lock.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, err
	}

	updated := 0
	for symbol, st := range stats {
		entry, ok := doc.Stocks[symbol]
		if !ok || !st.Valid() {
			continue
		}
		entry.Volatility = st.Volatility
		entry.ExpectedReturn = st.ExpectedReturn
		updated++
	}

	if err := s.save(doc); err != nil {
		return 0, err
	}

	s.logger.WithField("updated", updated).Info("Settings updated")
	return updated, nil
}

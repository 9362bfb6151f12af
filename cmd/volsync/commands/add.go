package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/volsync/internal/marketdata/yahoo"
	"github.com/wonny/volsync/internal/settings"
	"github.com/wonny/volsync/internal/statscache"
	"github.com/wonny/volsync/internal/statsvc"
)

// addCmd adds one new stock to the settings document.
var addCmd = &cobra.Command{
	Use:   "add SYMBOL",
	Short: "Add a new stock to the settings with fetched statistics",
	Long: `Fetches historical data for one symbol, derives volatility and expected
return, and inserts it into the settings document.

Fails if the symbol already exists or if no statistics could be derived.

Example:
  volsync add SHOP
  volsync add SHOP --provider nasdaq --period y5`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var (
	addProvider string
	addPeriod   string
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addProvider, "provider", "yahoo", "data provider (yahoo|nasdaq)")
	addCmd.Flags().StringVar(&addPeriod, "period", "5y", "lookback period in the provider's vocabulary")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, log, err := initApp()
	if err != nil {
		return err
	}

	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	if symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}

	store := settings.NewStore(cfg.SettingsPath, log)
	doc, err := store.Load()
	if err != nil {
		return err
	}

	if doc.Has(symbol) {
		return fmt.Errorf("stock %s already exists in settings", symbol)
	}

	provider, err := newProvider(cfg, log, addProvider)
	if err != nil {
		return err
	}

	// The 5y default belongs to yahoo's vocabulary; other providers fall back
	// to their own default unless a period was given explicitly.
	periodFlag := addPeriod
	if !cmd.Flags().Changed("period") && addProvider != "yahoo" {
		periodFlag = ""
	}

	period, err := resolvePeriod(provider, periodFlag)
	if err != nil {
		return err
	}

	svc := statsvc.New(provider, statscache.New(cfg.CacheDir, log), log)

	fmt.Printf("Fetching data for %s...\n", symbol)
	results := svc.Stats(cmd.Context(), []string{symbol}, period)

	stats, ok := results[symbol]
	if !ok || !stats.Valid() {
		return fmt.Errorf("failed to fetch data for %s", symbol)
	}

	// Company name is a nice-to-have, a lookup failure never blocks the add.
	var name string
	if yc, isYahoo := provider.(*yahoo.Client); isYahoo {
		if n, err := yc.CompanyName(cmd.Context(), symbol); err == nil {
			name = n
		} else {
			log.WithError(err).WithField("symbol", symbol).Debug("Company name lookup failed")
		}
	}

	if err := store.AddStock(symbol, stats, name); err != nil {
		return err
	}

	fmt.Printf("Successfully added %s with:\n", symbol)
	fmt.Printf("  Expected Return: %.2f%%\n", *stats.ExpectedReturn)
	fmt.Printf("  Volatility: %.2f%%\n", *stats.Volatility)
	return nil
}

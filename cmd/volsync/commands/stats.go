package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/volsync/internal/statscache"
	"github.com/wonny/volsync/internal/statsvc"
)

// statsCmd fetches and prints statistics without touching the settings.
var statsCmd = &cobra.Command{
	Use:   "stats SYMBOL...",
	Short: "Fetch and print statistics for symbols as JSON",
	Long: `Fetches historical data for the given symbols and prints the derived
volatility and expected return as JSON. The settings document is not modified.

Example:
  volsync stats TSLA NVDA CPNG
  volsync stats TSLA --provider nasdaq --period y5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

var (
	statsProvider string
	statsPeriod   string
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsProvider, "provider", "yahoo", "data provider (yahoo|nasdaq)")
	statsCmd.Flags().StringVar(&statsPeriod, "period", "", "lookback period, defaults to the provider's own")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, log, err := initApp()
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg, log, statsProvider)
	if err != nil {
		return err
	}

	period, err := resolvePeriod(provider, statsPeriod)
	if err != nil {
		return err
	}

	svc := statsvc.New(provider, statscache.New(cfg.CacheDir, log), log)
	results := svc.Stats(cmd.Context(), args, period)

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

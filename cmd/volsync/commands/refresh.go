package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/volsync/internal/scheduler"
	"github.com/wonny/volsync/internal/settings"
	"github.com/wonny/volsync/internal/statscache"
	"github.com/wonny/volsync/internal/statsvc"
)

// refreshCmd bulk-updates every symbol already present in the settings.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh statistics for all stocks in the settings",
	Long: `Fetches historical data for every symbol in the settings document and
overwrites its volatility and expected return with freshly derived values.

Symbols whose fetch fails keep their previous values; other fields in the
document are never touched. With --schedule, keeps running and refreshes on
the given cron expression.

Example:
  volsync refresh
  volsync refresh --provider nasdaq --period y5
  volsync refresh --schedule "0 18 * * 1-5"`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

var (
	refreshProvider string
	refreshPeriod   string
	refreshSchedule string
)

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVar(&refreshProvider, "provider", "nasdaq", "data provider (yahoo|nasdaq)")
	refreshCmd.Flags().StringVar(&refreshPeriod, "period", "", "lookback period, defaults to the provider's own")
	refreshCmd.Flags().StringVar(&refreshSchedule, "schedule", "", "cron expression for recurring refresh")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, log, err := initApp()
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg, log, refreshProvider)
	if err != nil {
		return err
	}

	period, err := resolvePeriod(provider, refreshPeriod)
	if err != nil {
		return err
	}

	store := settings.NewStore(cfg.SettingsPath, log)
	svc := statsvc.New(provider, statscache.New(cfg.CacheDir, log), log)

	refresh := func(ctx context.Context) error {
		// Re-read the document each run, symbols may have been added.
		doc, err := store.Load()
		if err != nil {
			return err
		}

		symbols := doc.Symbols()
		sort.Strings(symbols)
		if len(symbols) == 0 {
			fmt.Println("No stocks in settings, nothing to refresh")
			return nil
		}

		fmt.Printf("Refreshing %d stocks from %s (%s)...\n", len(symbols), provider.Name(), period)
		results := svc.Stats(ctx, symbols, period)

		updated, err := store.BulkUpdate(results)
		if err != nil {
			return err
		}

		fmt.Printf("Successfully updated %d of %d stocks\n", updated, len(symbols))
		return nil
	}

	if refreshSchedule == "" {
		return refresh(cmd.Context())
	}

	sched := scheduler.New(log)
	err = sched.Schedule(refreshSchedule, func() {
		if err := refresh(context.Background()); err != nil {
			log.WithError(err).Error("Scheduled refresh failed")
		}
	})
	if err != nil {
		return err
	}

	sched.Run()
	return nil
}

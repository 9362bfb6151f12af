package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/volsync/internal/marketdata"
	"github.com/wonny/volsync/internal/marketdata/nasdaq"
	"github.com/wonny/volsync/internal/marketdata/yahoo"
	"github.com/wonny/volsync/pkg/config"
	"github.com/wonny/volsync/pkg/httputil"
	"github.com/wonny/volsync/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "volsync",
	Short: "Stock volatility and expected return synchronizer",
	Long: `volsync fetches historical daily prices, derives annualized volatility
and expected annual return per symbol, and keeps stock_settings.json in sync.

Results are cached per provider and lookback period for 24 hours.

Examples:
  volsync add SHOP
  volsync refresh
  volsync refresh --schedule "0 18 * * 1-5"
  volsync stats TSLA NVDA --provider nasdaq --period y5`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initApp loads configuration and builds the logger shared by all commands.
func initApp() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}

// newProvider builds the requested provider adapter, each with its own HTTP
// client so rate limits stay per-provider.
func newProvider(cfg *config.Config, log *logger.Logger, name string) (marketdata.Provider, error) {
	httpClient := httputil.New(cfg, log)

	switch name {
	case "yahoo":
		return yahoo.NewClient(cfg, log, httpClient), nil
	case "nasdaq":
		return nasdaq.NewClient(cfg, log, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: yahoo, nasdaq)", name)
	}
}

// resolvePeriod falls back to the provider's own default when no period flag
// was given. Period vocabularies differ per provider and are never shared.
func resolvePeriod(provider marketdata.Provider, flag string) (string, error) {
	period := flag
	if period == "" {
		period = provider.DefaultPeriod()
	}
	if err := provider.ValidatePeriod(period); err != nil {
		return "", err
	}
	return period, nil
}

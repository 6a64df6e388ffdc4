package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/paydesk/slipline/internal/config"
	"github.com/paydesk/slipline/internal/ledger"
	"github.com/paydesk/slipline/pkg/statestore"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slipline",
	Short: "Slipline - payment-slip ticket ingestion for Telegram channels",
	Long: `Slipline watches Telegram ticket channels for payment-slip messages,
hands the extracted slip to the enrichment service and replies in-thread
with the verdict.

Cursor and session state are persisted in Redis, so runs resume exactly
where the previous one committed.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "slipline.yml", "Path to the slipline configuration file")
}

// openLedger loads the config and builds the Redis-backed ledger shared by
// all commands. The caller owns closing the returned store.
func openLedger() (*config.Config, *statestore.Store, *ledger.Ledger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	schema, err := ledger.Schema()
	if err != nil {
		return nil, nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := statestore.New(rdb, schema, cfg.Redis.Prefix)

	return cfg, store, ledger.New(store), nil
}

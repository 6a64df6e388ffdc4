package commands

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paydesk/slipline/internal/enrich"
	"github.com/paydesk/slipline/internal/ingest"
	"github.com/paydesk/slipline/internal/printer"
	"github.com/paydesk/slipline/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass over the configured channels",
	Long: `Run one ingestion pass: resume every configured channel from its
persisted cursor, process new messages in order and commit the cursor
after each one.

Recurring ingestion is the scheduler's job — invoke this command from
cron or an equivalent external trigger. Interrupting a run is safe: the
next run resumes from the last committed message.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, store, led, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return printer.Error(
			"Cannot reach Redis",
			err.Error(),
			[]string{"Check redis.addr in " + configPath},
		)
	}

	chat, err := telegram.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Account.ID,
		&http.Client{Timeout: cfg.GatewayTimeout()})
	if err != nil {
		return err
	}

	enricher, err := enrich.NewClient(cfg.Enricher.BaseURL,
		&http.Client{Timeout: cfg.EnricherTimeout()})
	if err != nil {
		return err
	}

	ing := ingest.New(ingest.Options{
		AccountID:     cfg.Account.ID,
		TriggerPhrase: cfg.TriggerPhrase(),
		PageSize:      cfg.PageSize(),
	}, chat, enricher, led)

	printer.Step("Ingesting %d channel(s)\n", len(cfg.Ingest.Channels))

	if err := ing.RunChannels(ctx, cfg.Ingest.Channels); err != nil {
		if ingest.IsSessionError(err) {
			return printer.Error(
				"Chat session unavailable",
				err.Error(),
				[]string{
					"Run 'slipline session register' to start registration",
					"Check that the MTProto gateway is reachable at " + cfg.Gateway.BaseURL,
				},
			)
		}
		return err
	}

	printer.Success("Ingestion pass complete\n")
	return nil
}

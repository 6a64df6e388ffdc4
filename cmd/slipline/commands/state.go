package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paydesk/slipline/internal/printer"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and reset persisted ingestion state",
	Long: `Inspect and reset the cursor and session records persisted for the
configured account.

'show' lists every record for the account, or one channel's cursor when
a channel ID is given. 'clear' deletes records the same way; a cleared
channel cold-starts on its next run (no backfill of old messages).`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show [channel-id]",
	Short: "Show persisted state for the account, or one channel",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStateShow,
}

var stateClearCmd = &cobra.Command{
	Use:   "clear [channel-id]",
	Short: "Delete persisted state for the account, or one channel",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStateClear,
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateClearCmd)
	rootCmd.AddCommand(stateCmd)
}

// stateKey resolves the optional channel argument to the local key the
// ledger uses: {account} for the whole account, {account}_{channel} for
// one channel.
func stateKey(accountID string, args []string) (string, error) {
	if len(args) == 0 {
		return accountID, nil
	}
	channelID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid channel ID %q: must be an integer", args[0])
	}
	return fmt.Sprintf("%s_%d", accountID, channelID), nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, _, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := stateKey(cfg.Account.ID, args)
	if err != nil {
		return err
	}

	records, err := store.FetchAll(ctx, key)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printer.Info("No persisted state for %s\n", key)
		return nil
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		printer.Info("%s\n", k)
		fields := records[k]
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := fields[name]
			if name == "session" {
				// Credentials are secrets; show presence only.
				value = "(set)"
			}
			printer.Info("  %s: %v\n", name, value)
		}
	}
	return nil
}

func runStateClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, _, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := stateKey(cfg.Account.ID, args)
	if err != nil {
		return err
	}

	deleted, err := store.Delete(ctx, key)
	if err != nil {
		return err
	}
	if deleted == 0 {
		printer.Warning("Nothing to clear for %s\n", key)
		return nil
	}

	printer.Success("Cleared %d record(s) for %s\n", deleted, key)
	return nil
}

package commands

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/paydesk/slipline/internal/printer"
	"github.com/paydesk/slipline/internal/telegram"
)

var (
	sessionCode     string
	sessionCodeHash string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the chat account session",
	Long: `Manage the persisted chat session credential.

Registration is a two-step, out-of-band flow: 'register' asks the
gateway to send a one-time code to the account's phone, 'verify'
exchanges the code for a session credential and persists it. Ingestion
runs reuse the persisted credential from then on.`,
}

var sessionRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Request a one-time sign-in code",
	RunE:  runSessionRegister,
}

var sessionVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Exchange the one-time code for a persisted session",
	RunE:  runSessionVerify,
}

func init() {
	sessionVerifyCmd.Flags().StringVar(&sessionCode, "code", "", "One-time code received on the account's phone (required)")
	sessionVerifyCmd.Flags().StringVar(&sessionCodeHash, "code-hash", "", "Code hash printed by 'session register' (required)")
	sessionVerifyCmd.MarkFlagRequired("code")
	sessionVerifyCmd.MarkFlagRequired("code-hash")

	sessionCmd.AddCommand(sessionRegisterCmd)
	sessionCmd.AddCommand(sessionVerifyCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, _, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	chat, err := telegram.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Account.ID,
		&http.Client{Timeout: cfg.GatewayTimeout()})
	if err != nil {
		return err
	}

	codeHash, err := chat.SendCode(ctx)
	if err != nil {
		return printer.Error(
			"Failed to request sign-in code",
			err.Error(),
			[]string{"Check that the MTProto gateway is reachable at " + cfg.Gateway.BaseURL},
		)
	}

	printer.Success("Sign-in code sent to %s\n", cfg.Account.Phone)
	printer.Info("Complete registration with:\n\n")
	printer.Info("  slipline session verify --code <code> --code-hash %s\n", codeHash)
	return nil
}

func runSessionVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, led, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	chat, err := telegram.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Account.ID,
		&http.Client{Timeout: cfg.GatewayTimeout()})
	if err != nil {
		return err
	}

	credential, err := chat.SignIn(ctx, sessionCode, sessionCodeHash)
	if err != nil {
		return printer.Error(
			"Sign-in failed",
			err.Error(),
			[]string{"Run 'slipline session register' again for a fresh code"},
		)
	}

	if err := led.SaveSession(ctx, cfg.Account.ID, credential); err != nil {
		return err
	}

	printer.Success("Session registered for account %s\n", cfg.Account.ID)
	return nil
}

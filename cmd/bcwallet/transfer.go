package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newBalanceCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			session, err := application.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			balance, err := application.pipeline.RefreshBalance(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%s: %.2f BC\n", session.Profile.WalletID, balance)
			return nil
		}),
	}
}

type sendOptions struct {
	To     string
	Amount float64
	Note   string
	Yes    bool
}

func newSendCommand(cfg *runtimeConfig) *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Transfer funds to another wallet",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if opts.To == "" {
				return fmt.Errorf("--%s is required", flagTo)
			}
			if opts.Amount == 0 {
				return fmt.Errorf("--%s is required", flagAmount)
			}
			ctx := cmd.Context()
			if _, err := application.requireSession(ctx); err != nil {
				return err
			}
			balance, err := application.pipeline.RefreshBalance(ctx)
			if err != nil {
				return err
			}

			receiver, err := application.pipeline.SetReceiver(ctx, opts.To)
			if err != nil {
				return err
			}
			if !receiver.Checked || !receiver.Valid {
				return fmt.Errorf("receiver wallet %q not found", opts.To)
			}
			preview := application.pipeline.SetAmount(opts.Amount)
			application.pipeline.SetNote(opts.Note)

			if !opts.Yes {
				cmd.Printf("Send %.2f BC to %s (%s)?\n", opts.Amount, receiver.HolderName, receiver.WalletID)
				cmd.Printf("Balance %.2f BC, %.2f BC after transfer.\n", balance, preview.RemainingBalance)
				answer, err := readLine(cmd, "Confirm [y/N]: ")
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					cmd.Println("Canceled.")
					return nil
				}
			}

			transaction, err := application.pipeline.Submit(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Transfer confirmed: %s\n", transaction.Hash)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.To, flagTo, "", "receiver wallet id")
	cmd.Flags().Float64Var(&opts.Amount, flagAmount, 0, "amount in BC")
	cmd.Flags().StringVar(&opts.Note, flagNote, "", "optional note")
	cmd.Flags().BoolVar(&opts.Yes, flagYes, false, "submit without confirmation")
	return cmd
}

func newHistoryCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the account's confirmed transfers",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			session, err := application.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			token, err := application.sessions.Token(cmd.Context())
			if err != nil {
				return err
			}
			history, err := application.client.History(cmd.Context(), token)
			if err != nil {
				return application.sessions.NoteAuthFailure(cmd.Context(), err)
			}
			if len(history) == 0 {
				cmd.Println("No transactions.")
				return nil
			}
			for _, transaction := range history {
				direction := "->"
				counterparty := transaction.ReceiverWalletID
				if transaction.ReceiverWalletID == session.Profile.WalletID {
					direction = "<-"
					counterparty = transaction.SenderWalletID
				}
				when := time.Unix(transaction.TimestampUnixUTC, 0).UTC().Format(time.RFC3339)
				cmd.Printf("%s  %s %s %10.2f BC  %s  %s\n", when, direction, counterparty, transaction.Amount, transaction.Status, shortHash(transaction.Hash))
			}
			return nil
		}),
	}
}

func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

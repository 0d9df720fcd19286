package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BarakahPay/bcwallet/internal/apiclient"
)

func newExplorerCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explorer",
		Short: "Browse the public chain",
	}
	cmd.AddCommand(
		newExplorerChainCommand(cfg),
		newExplorerStatsCommand(cfg),
		newExplorerBlockCommand(cfg),
		newExplorerTxCommand(cfg),
		newExplorerPendingCommand(cfg),
	)
	return cmd
}

func newExplorerChainCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "List all mined blocks",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			chain, err := application.client.Chain(cmd.Context())
			if err != nil {
				return err
			}
			for _, block := range chain {
				printBlockSummary(cmd, block)
			}
			return nil
		}),
	}
}

func newExplorerStatsCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate chain statistics",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			stats, err := application.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Blocks:       %d\n", stats.TotalBlocks)
			cmd.Printf("Transactions: %d (%d pending)\n", stats.TotalTransactions, stats.PendingTransactions)
			cmd.Printf("Total supply: %.2f BC\n", stats.TotalSupply)
			if stats.LatestBlock != nil {
				cmd.Printf("Latest block: #%d %s\n", stats.LatestBlock.Index, shortHash(stats.LatestBlock.Hash))
			}
			return nil
		}),
	}
}

func newExplorerBlockCommand(cfg *runtimeConfig) *cobra.Command {
	var hash string
	var index int64
	var latest bool
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Look a block up by hash, index, or chain head",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			var (
				block apiclient.Block
				err   error
			)
			switch {
			case hash != "":
				block, err = application.client.BlockByHash(cmd.Context(), hash)
			case cmd.Flags().Changed(flagIndex):
				block, err = application.client.BlockByIndex(cmd.Context(), index)
			case latest:
				block, err = application.client.LatestBlock(cmd.Context())
			default:
				return fmt.Errorf("one of --%s, --%s, or --%s is required", flagHash, flagIndex, flagLatest)
			}
			if err != nil {
				return err
			}
			printBlock(cmd, block)
			return nil
		}),
	}
	cmd.Flags().StringVar(&hash, flagHash, "", "block hash")
	cmd.Flags().Int64Var(&index, flagIndex, 0, "block index")
	cmd.Flags().BoolVar(&latest, flagLatest, false, "fetch the chain head")
	return cmd
}

func newExplorerTxCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tx <hash>",
		Short: "Look a confirmed transaction up by hash",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			transaction, err := application.client.TransactionByHash(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			when := time.Unix(transaction.TimestampUnixUTC, 0).UTC().Format(time.RFC3339)
			cmd.Printf("Hash:     %s\n", transaction.Hash)
			cmd.Printf("From:     %s\n", transaction.SenderWalletID)
			cmd.Printf("To:       %s\n", transaction.ReceiverWalletID)
			cmd.Printf("Amount:   %.2f BC\n", transaction.Amount)
			cmd.Printf("Status:   %s\n", transaction.Status)
			cmd.Printf("Time:     %s\n", when)
			if transaction.Note != "" {
				cmd.Printf("Note:     %s\n", transaction.Note)
			}
			return nil
		}),
	}
}

func newExplorerPendingCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List unconfirmed transfers",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			pending, err := application.client.PendingTransfers(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				cmd.Println("No pending transfers.")
				return nil
			}
			for _, transaction := range pending {
				cmd.Printf("%s -> %s %10.2f BC  %s\n", transaction.SenderWalletID, transaction.ReceiverWalletID, transaction.Amount, shortHash(transaction.Hash))
			}
			return nil
		}),
	}
}

func newZakatCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zakat",
		Short: "Show the account's zakat standing",
	}
	cmd.AddCommand(newZakatSummaryCommand(cfg), newZakatHistoryCommand(cfg))
	return cmd
}

func newZakatSummaryCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate deductions",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			token, err := application.sessions.Token(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := application.client.ZakatStanding(cmd.Context(), token)
			if err != nil {
				return application.sessions.NoteAuthFailure(cmd.Context(), err)
			}
			cmd.Printf("Rate:            %.2f%%\n", summary.Rate*100)
			cmd.Printf("Total deducted:  %.2f BC\n", summary.TotalDeducted)
			if summary.LastDeductionUnixUTC > 0 {
				cmd.Printf("Last deduction:  %s\n", time.Unix(summary.LastDeductionUnixUTC, 0).UTC().Format(time.RFC3339))
			}
			return nil
		}),
	}
}

func newZakatHistoryCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List individual deductions",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			token, err := application.sessions.Token(cmd.Context())
			if err != nil {
				return err
			}
			history, err := application.client.ZakatHistory(cmd.Context(), token)
			if err != nil {
				return application.sessions.NoteAuthFailure(cmd.Context(), err)
			}
			if len(history) == 0 {
				cmd.Println("No deductions.")
				return nil
			}
			for _, record := range history {
				when := time.Unix(record.DeductedAtUnixUTC, 0).UTC().Format(time.RFC3339)
				cmd.Printf("%s  %10.2f BC  %s\n", when, record.Amount, shortHash(record.TransactionHash))
			}
			return nil
		}),
	}
}

func printBlockSummary(cmd *cobra.Command, block apiclient.Block) {
	when := time.Unix(block.TimestampUnixUTC, 0).UTC().Format(time.RFC3339)
	cmd.Printf("#%-5d %s  %s  %d tx\n", block.Index, shortHash(block.Hash), when, len(block.Transactions))
}

func printBlock(cmd *cobra.Command, block apiclient.Block) {
	when := time.Unix(block.TimestampUnixUTC, 0).UTC().Format(time.RFC3339)
	cmd.Printf("Index:         %d\n", block.Index)
	cmd.Printf("Hash:          %s\n", block.Hash)
	cmd.Printf("Previous hash: %s\n", block.PreviousHash)
	cmd.Printf("Time:          %s\n", when)
	if block.MinerWalletID != "" {
		cmd.Printf("Miner:         %s\n", block.MinerWalletID)
	}
	cmd.Printf("Transactions:  %d\n", len(block.Transactions))
	for _, transaction := range block.Transactions {
		cmd.Printf("  %s -> %s %10.2f BC  %s\n", transaction.SenderWalletID, transaction.ReceiverWalletID, transaction.Amount, shortHash(transaction.Hash))
	}
}

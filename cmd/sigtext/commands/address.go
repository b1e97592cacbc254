package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/explorer"
)

func newAddressCmd() *cobra.Command {
	var txLimit int

	cmd := &cobra.Command{
		Use:   "address <wallet>",
		Short: "Inspect a sender address on the blockchain explorer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.Explorer.URL == "" {
				return fmt.Errorf("no explorer configured: set explorer.url in %s", cfgFile)
			}

			client := explorer.NewClient(cfg.Explorer.URL, cfg.Explorer.APIKey)
			ctx := cmd.Context()

			account, err := client.Account(ctx, args[0])
			if err != nil {
				return fmt.Errorf("looking up address: %w", err)
			}

			fmt.Printf("Address:  %s\n", account.Address)
			fmt.Printf("Balance:  %s\n", account.Balance)
			fmt.Printf("Txs:      %d\n", account.TxCount)

			txs, err := client.Transactions(ctx, args[0], txLimit)
			if err != nil {
				return fmt.Errorf("fetching transactions: %w", err)
			}
			if len(txs) == 0 {
				return nil
			}

			fmt.Println()
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tHASH\tFROM\tTO\tVALUE\n")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					tx.Timestamp.Format(time.RFC3339), shorten(tx.Hash), shorten(tx.From), shorten(tx.To), tx.Value)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&txLimit, "limit", 10, "max transactions to show")
	return cmd
}

func shorten(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:8] + "…" + s[len(s)-4:]
}

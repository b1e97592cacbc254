package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/store"
)

func newLogsCmd() *cobra.Command {
	var method, since, hash string
	var failed bool
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the verification attempt log",
		Example: `  sigtext logs
  sigtext logs --failed
  sigtext logs --method sms --since 1h
  sigtext logs --hash 3f5a...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			st, err := openStore(cfg, quietLogger())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var sinceTime string
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", since, err)
				}
				sinceTime = time.Now().Add(-dur).UTC().Format(time.RFC3339)
			}

			attempts, err := st.QueryAttempts(store.AttemptQuery{
				Method:      model.Method(method),
				FailedOnly:  failed,
				ContentHash: hash,
				Since:       sinceTime,
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			if len(attempts) == 0 {
				fmt.Println("No verification attempts found.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tMETHOD\tRESULT\tUSER\tERROR\n")
			for _, a := range attempts {
				result := "ok"
				if !a.Success {
					result = "FAILED"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					a.CreatedAt.Format(time.RFC3339), a.Method, result, a.UserID, a.Error)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "filter by method (sms, qr, manual)")
	cmd.Flags().BoolVar(&failed, "failed", false, "show only failed attempts")
	cmd.Flags().StringVar(&since, "since", "", "show attempts since duration (e.g. 1h, 30m)")
	cmd.Flags().StringVar(&hash, "hash", "", "filter by content hash")
	cmd.Flags().IntVar(&limit, "limit", 50, "max attempts to return")
	return cmd
}

package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/verify"
	"github.com/tusharbhayani/SigText/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an inbox directory and verify dropped messages",
		Long: `Watches a directory for .txt message files and verifies each new
file as it appears. The filename is used as the sender phone number
when it starts with '+' (e.g. +15551234567.txt).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if dir == "" {
				dir = cfg.Inbox.Dir
			}
			if dir == "" {
				return fmt.Errorf("no inbox directory: set --dir or inbox.dir in %s", cfgFile)
			}

			logger := newLogger(cfg)
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc := buildService(cfg, st, logger)
			w := watch.New(dir, cfg.Inbox.MaxMsgBytes, svc, logger)
			w.OnResult = func(path string, out *verify.Outcome) {
				fmt.Printf("\n%s\n", path)
				printOutcome(out)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watching %s (Ctrl+C to stop)...\n", dir)
			err = w.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "inbox directory (overrides config)")
	return cmd
}

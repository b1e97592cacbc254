package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/backend"
	"github.com/tusharbhayani/SigText/internal/mirror"
)

func newSyncCmd() *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the local mirror from the backend",
		Long: `Pulls the verified-organization directory and recent verified
messages into the local cache. One cycle by default; --start keeps a
scheduler running on the configured interval until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.Backend.Configured() {
				return fmt.Errorf("no backend configured: set backend.url in %s", cfgFile)
			}

			logger := newLogger(cfg)
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey)
			syncer := mirror.NewSyncer(client, st, cfg.Cache.RecentLimit, logger)

			if start {
				interval := cfg.Cache.SyncEvery()
				syncer.Start(interval)
				defer syncer.Stop()
				fmt.Printf("Syncing every %s (Ctrl+C to stop)...\n", interval)

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				<-ctx.Done()
				return nil
			}

			if err := syncer.Sync(cmd.Context()); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			status := syncer.Status()
			fmt.Printf("Synced %d organizations, %d messages\n", status.OrgCount, status.MsgCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&start, "start", false, "keep syncing on the configured interval")
	return cmd
}

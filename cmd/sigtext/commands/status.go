package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/model"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and local mirror state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			mode := "degraded (local heuristic)"
			if cfg.Backend.Configured() {
				mode = "remote (" + cfg.Backend.URL + ")"
			}

			fmt.Println()
			fmt.Println("  sigtext status")
			fmt.Println("  ────────────────────────────────────────")
			fmt.Printf("  Verification:  %s\n", mode)
			fmt.Printf("  Config:        %s\n", cfgFile)
			fmt.Printf("  Cache DB:      %s\n", cfg.Cache.DBPath)
			fmt.Printf("  Sync interval: %s\n", cfg.Cache.SyncEvery())

			logger := quietLogger()
			st, err := openStore(cfg, logger)
			if err != nil {
				fmt.Printf("  Mirror:        unavailable (%v)\n", err)
				fmt.Println()
				return nil
			}
			defer func() { _ = st.Close() }()

			orgs, _ := st.Organizations()
			msgs, _ := st.RecentMessages(0)
			verified := 0
			for _, o := range orgs {
				if o.Status == model.OrgVerified {
					verified++
				}
			}

			fmt.Println("  ────────────────────────────────────────")
			fmt.Printf("  Organizations: %d cached (%d verified)\n", len(orgs), verified)
			fmt.Printf("  Messages:      %d recent cached\n", len(msgs))
			if synced := st.SyncedAt(); !synced.IsZero() {
				fmt.Printf("  Last sync:     %s\n", synced.Format("2006-01-02 15:04:05 MST"))
			} else {
				fmt.Println("  Last sync:     never")
			}
			fmt.Println()
			return nil
		},
	}
}

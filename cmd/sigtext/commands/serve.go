package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the self-hosted verification server",
		Long: `Serves the verification API backed by Postgres: the verify
procedure, the organization directory, and the verified-message feed.
Redis (when configured) caches organization lookups and rate-limits
verification per sender. Metrics are exposed on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.Server.PostgresURL == "" {
				return fmt.Errorf("no database configured: set server.postgres_url in %s", cfgFile)
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			dir, err := server.NewPGStore(ctx, cfg.Server.PostgresURL)
			if err != nil {
				return err
			}
			defer dir.Close()

			var cache *server.Cache
			if cfg.Server.RedisAddr != "" {
				window := time.Duration(cfg.Server.RateLimit.WindowS) * time.Second
				cache, err = server.NewCache(cfg.Server.RedisAddr, cfg.Server.RateLimit.PerSender, window, logger)
				if err != nil {
					return err
				}
				defer func() { _ = cache.Close() }()
			}

			if cfg.Server.Tracing {
				shutdown, err := server.SetupTracing()
				if err != nil {
					return err
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(ctx)
				}()
			}

			srv := server.New(server.Options{
				Dir:      dir,
				Cache:    cache,
				APIKeys:  cfg.Server.APIKeys,
				Notifier: server.NewWebhookNotifier(cfg.Server.Webhooks, nil, logger),
				Tracing:  cfg.Server.Tracing,
				Logger:   logger,
			})

			addr := fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port)
			return srv.ListenAndServe(addr)
		},
	}
}

package main

import (
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/quantfold/orderflow/internal/config"
	"github.com/quantfold/orderflow/internal/metrics"
	"github.com/quantfold/orderflow/internal/server"
	"github.com/quantfold/orderflow/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the footprint and statistics HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg := metrics.NewRegistry()

			var trades server.TradeSource
			if cfg.Postgres.DSN != "" {
				st, err := store.Open(ctx, cfg.Postgres.DSN)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.EnsureSchema(ctx); err != nil {
					return err
				}
				trades = st
			}

			return server.New(trades, reg).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quantfold/orderflow/internal/cache"
	"github.com/quantfold/orderflow/internal/config"
	"github.com/quantfold/orderflow/internal/domain/footprint"
	"github.com/quantfold/orderflow/internal/domain/trade"
	"github.com/quantfold/orderflow/internal/metrics"
	"github.com/quantfold/orderflow/internal/pricestep"
	"github.com/quantfold/orderflow/internal/store"
	"github.com/quantfold/orderflow/internal/stream"
)

func streamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Ingest live trades into per-symbol footprint aggregators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runStream(cmd.Context(), cfg)
		},
	}
	return cmd
}

func runStream(ctx context.Context, cfg config.Config) error {
	reg := metrics.NewRegistry()
	resolver := pricestep.NewResolver(pricestep.ResolverConfig{
		Endpoints:      cfg.Resolver.Endpoints,
		RequestTimeout: cfg.Resolver.RequestTimeout.Std(),
		TTL:            cfg.Resolver.TTL.Std(),
		RequestsPerSec: cfg.Resolver.RequestsPerSec,
	}, newCacheStore(cfg), reg)

	var trades *store.TradeStore
	if cfg.Postgres.DSN != "" {
		var err error
		trades, err = store.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer trades.Close()
		if err := trades.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, symbol := range cfg.Symbols {
		symbol := symbol
		group.Go(func() error {
			return runSymbol(ctx, cfg, symbol, resolver, trades, reg)
		})
	}
	return group.Wait()
}

// runSymbol owns one symbol end to end: its stream, its aggregator, and
// its housekeeping. Aggregator state is confined to this goroutine, so
// ingestion stays single-writer.
func runSymbol(ctx context.Context, cfg config.Config, symbol string, resolver *pricestep.Resolver, trades *store.TradeStore, reg *metrics.Registry) error {
	step := cfg.Aggregator.PriceStep
	if step <= 0 {
		step = resolver.Resolve(ctx, symbol, pricestep.Sample{})
	}

	agg, err := footprint.NewAggregator(symbol, cfg.Aggregator.Timeframe, step)
	if err != nil {
		return err
	}

	client, err := stream.NewClient(stream.Config{
		BaseURL:    cfg.Stream.BaseURL,
		Symbol:     symbol,
		BackoffMin: cfg.Stream.BackoffMin.Std(),
		BackoffMax: cfg.Stream.BackoffMax.Std(),
	}, reg)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return client.Run(ctx) })
	group.Go(func() error {
		return consume(ctx, cfg, symbol, agg, client.Trades(), trades, reg)
	})

	log.Info().Str("symbol", symbol).Float64("price_step", step).Str("timeframe", string(cfg.Aggregator.Timeframe)).Msg("streaming session started")
	return group.Wait()
}

func consume(ctx context.Context, cfg config.Config, symbol string, agg *footprint.Aggregator, ticks <-chan trade.Normalized, trades *store.TradeStore, reg *metrics.Registry) error {
	pruneTicker := time.NewTicker(cfg.Aggregator.PruneInterval.Std())
	defer pruneTicker.Stop()

	var pending []trade.Normalized
	flush := func() {
		if trades == nil || len(pending) == 0 {
			return
		}
		if err := trades.InsertBatch(ctx, pending); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Int("count", len(pending)).Msg("trade batch insert failed")
		}
		pending = pending[:0]
	}
	defer flush()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			agg.Ingest(tick)
			if trades != nil {
				pending = append(pending, tick)
				if len(pending) >= 100 {
					flush()
				}
			}
		case <-pruneTicker.C:
			pruned := agg.Prune(time.Now(), cfg.Aggregator.Retention.Std())
			pruned += agg.TrimTo(cfg.Aggregator.MaxBars)
			if pruned > 0 {
				reg.BucketsPruned.Add(float64(pruned))
			}
			reg.OpenBuckets.WithLabelValues(symbol).Set(float64(agg.Len()))
			flush()
		}
	}
}

func newCacheStore(cfg config.Config) cache.Cache {
	if cfg.Redis.Addr == "" {
		return cache.NewMemory()
	}
	return cache.NewRedis(newRedisClient(cfg.Redis), "orderflow:")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.InheritedFlags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

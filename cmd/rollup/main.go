// Command rollup runs a one-off analytics aggregation for a single day,
// for use from cron or during backfills.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/radiusdt/adserver/internal/adserver"
	"github.com/radiusdt/adserver/internal/config"
	"github.com/radiusdt/adserver/internal/database"
	"github.com/radiusdt/adserver/internal/middleware"
	"github.com/radiusdt/adserver/internal/storage"
	"go.uber.org/zap"
)

func main() {
	var (
		dateStr = flag.String("date", time.Now().UTC().Format("2006-01-02"), "UTC day to aggregate (YYYY-MM-DD)")
		page    = flag.String("page", "", "restrict the run to one page")
	)
	flag.Parse()

	date, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -date: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	viewStore := storage.ViewStore(storage.NewPostgresViewStore(db.Pool))
	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to connect to ClickHouse", zap.Error(err))
		}
		defer ch.Close()
		viewStore = storage.NewClickHouseViewStore(ch.Conn)
	}

	var locker adserver.RollupLocker = adserver.NewKeyedMutexLocker()
	if cfg.Redis.Enabled {
		redis, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, running without distributed lock", zap.Error(err))
		} else {
			defer redis.Close()
			locker = adserver.NewRedisRollupLocker(redis.Client, cfg.Rollup.LockTTL)
		}
	}

	aggregator := adserver.NewAggregatorService(
		viewStore,
		storage.NewPostgresCampaignRepo(db.Pool),
		storage.NewPostgresRollupRepo(db.Pool),
		locker,
		nil,
		logger,
	)

	rollups, err := aggregator.Rollup(ctx, date, *page)
	if err != nil {
		logger.Fatal("rollup failed", zap.Error(err))
	}

	logger.Info("rollup finished",
		zap.String("date", *dateStr),
		zap.String("page", *page),
		zap.Int("buckets", len(rollups)),
	)
}

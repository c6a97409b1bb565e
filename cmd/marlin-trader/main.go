package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marlin/internal/broker"
	"marlin/internal/config"
	"marlin/internal/domain"
	"marlin/internal/engine"
	"marlin/internal/portfolio"
	"marlin/internal/store"
	"marlin/internal/util"
)

func main() {
	cfgPath := "config/marlin.yaml"
	if p := os.Getenv("MARLIN_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journal, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("opening return journal", "path", cfg.Storage.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	archive := store.NewParquetStore(cfg.Storage.DataDir)

	gateway, err := newGateway(ctx, cfg, logger)
	if err != nil {
		logger.Error("connecting gateway", "error", err)
		os.Exit(1)
	}

	risk := engine.NewRiskManager(cfg.Trading.MaxPositionSize, cfg.Trading.MaxDailyLoss)
	manager := engine.NewOrderManager(gateway, store.NewOrderStore(), risk, logger)
	eng := engine.NewEngine(
		gateway,
		manager,
		store.NewPositionBook(),
		portfolio.NewTracker(portfolio.DefaultWindow),
		journal,
		cfg.Trading.InitialPortfolioValue,
		logger,
	)

	if err := eng.SeedFromJournal(ctx); err != nil {
		logger.Error("seeding performance history", "error", err)
		os.Exit(1)
	}

	if alpaca, ok := gateway.(*broker.AlpacaGateway); ok {
		if err := alpaca.SyncPositions(ctx); err != nil {
			logger.Warn("initial position sync failed", "error", err)
		}
	}

	go runDailyReturnLoop(ctx, eng, journal, archive, logger)
	go runRebalanceLoop(ctx, eng, cfg.Trading, logger)

	logger.Info("marlin-trader started",
		"gateway", gateway.Name(),
		"paperMode", cfg.Trading.PaperMode,
		"maxPositionSize", cfg.Trading.MaxPositionSize,
		"maxDailyLoss", cfg.Trading.MaxDailyLoss,
	)

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("marlin-trader stopped")
}

// newGateway selects the broker gateway. Paper mode trades against the
// in-memory simulator; live mode connects to Alpaca, retrying transient
// startup failures.
func newGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (broker.Gateway, error) {
	if cfg.Trading.PaperMode {
		return broker.NewSimulatorGateway(), nil
	}

	gw := broker.NewAlpacaGateway(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.BaseURL,
		cfg.Alpaca.SubmitPerMinute,
		logger,
	)
	err := util.Retry(ctx, 5, time.Second, func() error {
		return gw.Connect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// runDailyReturnLoop records one portfolio return sample at each session
// close and archives the accumulated history to parquet.
func runDailyReturnLoop(ctx context.Context, eng *engine.Engine, journal *store.SQLiteStore, archive *store.ParquetStore, logger *slog.Logger) {
	cal := util.NewTradingCalendar(domain.MarketUS)
	for {
		now := time.Now()
		next := cal.NextClose(now)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}

		if err := eng.RecordDailyReturn(ctx, next); err != nil {
			logger.Error("recording daily return", "error", err)
			continue
		}
		eng.Manager().ResetDailyPnL()

		records, err := journal.RecentReturns(ctx, portfolio.DefaultWindow)
		if err != nil {
			logger.Error("reading return history for archive", "error", err)
			continue
		}
		if err := archive.WriteReturns(records); err != nil {
			logger.Error("archiving return history", "error", err)
		}
	}
}

// runRebalanceLoop checks the allocation against the configured target once
// an hour during market hours and submits corrective orders when the drift
// exceeds the threshold.
func runRebalanceLoop(ctx context.Context, eng *engine.Engine, trading config.TradingConfig, logger *slog.Logger) {
	if len(trading.TargetAllocation) == 0 {
		return
	}

	cal := util.NewTradingCalendar(domain.MarketUS)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !cal.IsMarketOpen(time.Now()) {
			continue
		}
		if !eng.NeedsRebalancing(trading.TargetAllocation, trading.RebalanceThreshold) {
			continue
		}
		ids, err := eng.Rebalance(ctx, trading.TargetAllocation)
		if err != nil {
			logger.Error("rebalancing", "error", err)
			continue
		}
		logger.Info("rebalancing orders submitted", "count", len(ids))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/config"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/database"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/engine"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/logger"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/scheduler"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
)

// Headless runner: executes the trading cycles of every active bot on
// the configured schedule, without the HTTP API.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated")

	st := store.New(db)
	market := marketdata.NewClient(&cfg.MarketData, log)
	eng := engine.New(st, market, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(st, eng, log, cfg.Scheduler.Interval)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	log.Info("Trading scheduler started", zap.String("interval", cfg.Scheduler.Interval))

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	cancel()
	sched.Stop()

	log.Info("Trader has been shut down")
}

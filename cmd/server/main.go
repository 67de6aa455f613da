package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/auth"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/config"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/database"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/engine"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/ledger"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/logger"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/scheduler"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/server"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
)

func main() {
	// Optional .env for local development; deployments set the
	// environment directly.
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

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret is not set; export AUTH_JWT_SECRET or add it to the config file")
	}

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated")

	st := store.New(db)
	market := marketdata.NewClient(&cfg.MarketData, log)

	eng := engine.New(st, market, log)
	srv := server.New(cfg, log, st,
		auth.NewService(cfg.Auth),
		ledger.NewService(st, market, log),
		engine.NewService(st, eng, log),
		market)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(st, eng, log, cfg.Scheduler.Interval)
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Trading scheduler started", zap.String("interval", cfg.Scheduler.Interval))
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		log.Info("Starting API server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("API server failed", zap.Error(err))
		}
	}()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	cancel()
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced server shutdown", zap.Error(err))
	}

	log.Info("Server has been shut down")
}

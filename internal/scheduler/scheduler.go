package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/engine"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/metrics"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
)

// Scheduler periodically runs a trading cycle for every active bot.
type Scheduler struct {
	cron     *cron.Cron
	store    *store.Store
	engine   *engine.Engine
	logger   *zap.Logger
	interval string
}

// New creates a scheduler sweeping on the given cron spec, e.g.
// "@every 15m".
func New(st *store.Store, eng *engine.Engine, logger *zap.Logger, interval string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		store:    st,
		engine:   eng,
		logger:   logger,
		interval: interval,
	}
}

// Start registers the sweep on the configured schedule and starts the
// cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.interval, func() { s.Sweep(ctx) })
	if err != nil {
		return fmt.Errorf("invalid scheduler interval %q: %w", s.interval, err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("interval", s.interval))
	return nil
}

// Stop stops scheduling new sweeps and waits for a running sweep to
// finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Sweep runs one trading cycle for every active bot. Per-bot failures
// are logged and never abort the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	bots, err := s.store.ActiveBots()
	if err != nil {
		s.logger.Error("Could not list active bots", zap.Error(err))
		return
	}
	metrics.ActiveBots.Set(float64(len(bots)))

	for i := range bots {
		bot := &bots[i]
		result, err := s.engine.RunCycle(ctx, bot)
		if err != nil {
			s.logger.Error("Trading cycle failed",
				zap.Uint("bot_id", bot.ID), zap.Error(err))
			continue
		}
		s.logger.Info("Trading cycle finished",
			zap.Uint("bot_id", bot.ID),
			zap.Int("analyzed", result.Analyzed),
			zap.Int("bought", result.Bought),
			zap.Int("sold", result.Sold))
	}
}

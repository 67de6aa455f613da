package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
)

var (
	// ErrInvalidCapital rejects bot creation with a non-positive capital.
	ErrInvalidCapital = errors.New("initial capital must be positive")

	// ErrBotStopped rejects lifecycle changes on a stopped bot. STOPPED
	// is terminal; the capital has already been returned.
	ErrBotStopped = errors.New("bot is stopped")
)

// Service manages the bot lifecycle: creation carves capital out of the
// owner's balance, stop hands the remainder back. Cycles are delegated
// to the engine.
type Service struct {
	store  *store.Store
	engine *Engine
	logger *zap.Logger
}

func NewService(st *store.Store, eng *Engine, logger *zap.Logger) *Service {
	return &Service{store: st, engine: eng, logger: logger}
}

// CreateBotParams are the inputs for a new bot.
type CreateBotParams struct {
	UserID              uint
	Name                string
	RiskLevel           string
	Duration            string
	InitialCapital      decimal.Decimal
	UsePivotStrategy    bool
	UsePrediction       bool
	UseScreener         bool
	UseIndexRebalancing bool
}

// CreateBot validates the tier selection, debits the initial capital
// from the owner's balance and creates the bot in ACTIVE state. The
// debit and the insert commit atomically.
func (s *Service) CreateBot(params CreateBotParams) (*models.AutoTradingBot, error) {
	if !params.InitialCapital.IsPositive() {
		return nil, ErrInvalidCapital
	}
	profile, err := ProfileFor(params.RiskLevel)
	if err != nil {
		return nil, err
	}
	multiplier, err := DurationMultiplierFor(params.Duration)
	if err != nil {
		return nil, err
	}

	name := params.Name
	if name == "" {
		name = fmt.Sprintf("AutoBot-%s", params.RiskLevel)
	}

	bot := &models.AutoTradingBot{
		UserID:              params.UserID,
		Name:                name,
		Status:              models.BotStatusActive,
		RiskLevel:           params.RiskLevel,
		InvestmentDuration:  params.Duration,
		InitialCapital:      params.InitialCapital,
		CurrentCapital:      params.InitialCapital,
		ExpectedReturn:      profile.ExpectedMonthlyReturn.Mul(decimal.NewFromInt(multiplier)),
		UsePivotStrategy:    params.UsePivotStrategy,
		UsePrediction:       params.UsePrediction,
		UseScreener:         params.UseScreener,
		UseIndexRebalancing: params.UseIndexRebalancing,
	}

	err = s.store.Transaction(func(tx *store.Store) error {
		if err := tx.DebitBalance(params.UserID, params.InitialCapital); err != nil {
			return err
		}
		return tx.CreateBot(bot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created trading bot",
		zap.Uint("bot_id", bot.ID),
		zap.Uint("user_id", params.UserID),
		zap.String("risk_level", params.RiskLevel),
		zap.String("duration", params.Duration),
		zap.String("initial_capital", params.InitialCapital.String()))
	return bot, nil
}

// StartBot resumes a paused bot. Starting an already active bot is a
// no-op; starting a stopped bot is rejected.
func (s *Service) StartBot(botID, userID uint) (*models.AutoTradingBot, error) {
	bot, err := s.store.GetBotForUser(botID, userID)
	if err != nil {
		return nil, err
	}
	if bot.Status == models.BotStatusStopped {
		return nil, ErrBotStopped
	}
	if bot.Status == models.BotStatusActive {
		return bot, nil
	}

	bot.Status = models.BotStatusActive
	if err := s.store.SaveBot(bot); err != nil {
		return nil, err
	}
	s.logger.Info("Started bot", zap.Uint("bot_id", bot.ID))
	return bot, nil
}

// PauseBot suspends trading without moving capital. Pausing an already
// paused bot is a no-op; pausing a stopped bot is rejected.
func (s *Service) PauseBot(botID, userID uint) (*models.AutoTradingBot, error) {
	bot, err := s.store.GetBotForUser(botID, userID)
	if err != nil {
		return nil, err
	}
	if bot.Status == models.BotStatusStopped {
		return nil, ErrBotStopped
	}
	if bot.Status == models.BotStatusPaused {
		return bot, nil
	}

	bot.Status = models.BotStatusPaused
	if err := s.store.SaveBot(bot); err != nil {
		return nil, err
	}
	s.logger.Info("Paused bot", zap.Uint("bot_id", bot.ID))
	return bot, nil
}

// StopResult reports the final accounting of a stopped bot.
type StopResult struct {
	Bot             *models.AutoTradingBot `json:"bot"`
	CapitalReturned decimal.Decimal        `json:"capital_returned"`
	TotalProfitLoss decimal.Decimal        `json:"total_profit_loss"`
	ROI             decimal.Decimal        `json:"roi_percentage"`
}

// StopBot terminates a bot and returns its remaining capital to the
// owner's balance. The credit and the status change commit atomically.
// Open holdings are not liquidated; they stay on the account.
func (s *Service) StopBot(botID, userID uint) (*StopResult, error) {
	bot, err := s.store.GetBotForUser(botID, userID)
	if err != nil {
		return nil, err
	}
	if bot.Status == models.BotStatusStopped {
		return nil, ErrBotStopped
	}

	returned := bot.CurrentCapital
	err = s.store.Transaction(func(tx *store.Store) error {
		if err := tx.CreditBalance(userID, returned); err != nil {
			return err
		}
		bot.Status = models.BotStatusStopped
		return tx.SaveBot(bot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stopped bot",
		zap.Uint("bot_id", bot.ID),
		zap.String("capital_returned", returned.String()),
		zap.String("total_profit_loss", bot.TotalProfitLoss.String()))
	return &StopResult{
		Bot:             bot,
		CapitalReturned: returned,
		TotalProfitLoss: bot.TotalProfitLoss,
		ROI:             bot.ROIPercentage().Round(2),
	}, nil
}

// RunCycle executes one trading cycle for the user's bot.
func (s *Service) RunCycle(ctx context.Context, botID, userID uint) (*CycleResult, error) {
	bot, err := s.store.GetBotForUser(botID, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.RunCycle(ctx, bot)
}

// ListBots returns all bots of a user, newest first.
func (s *Service) ListBots(userID uint) ([]models.AutoTradingBot, error) {
	return s.store.BotsForUser(userID)
}

// GetBot returns the user's bot by ID.
func (s *Service) GetBot(botID, userID uint) (*models.AutoTradingBot, error) {
	return s.store.GetBotForUser(botID, userID)
}

// TradesForBot returns the trade history of the user's bot, newest
// first.
func (s *Service) TradesForBot(botID, userID uint) ([]models.BotTrade, error) {
	if _, err := s.store.GetBotForUser(botID, userID); err != nil {
		return nil, err
	}
	return s.store.TradesForBot(botID)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/metrics"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/strategy"
)

// Engine drives automated trading cycles: it reconciles open positions
// against stop-loss and take-profit thresholds, aggregates signals over
// a bot's watchlist and executes the resulting orders against the
// ledger.
type Engine struct {
	store  *store.Store
	market marketdata.ClientInterface
	logger *zap.Logger

	pivot     *strategy.PivotStrategy
	nextDay   *strategy.NextDayStrategy
	screener  *strategy.ScreenerStrategy
	rebalance *strategy.IndexRebalancingStrategy
}

// New creates a trading engine. The signal providers are stateless and
// shared across all bots.
func New(st *store.Store, market marketdata.ClientInterface, logger *zap.Logger) *Engine {
	return &Engine{
		store:     st,
		market:    market,
		logger:    logger,
		pivot:     strategy.NewPivotStrategy(market),
		nextDay:   strategy.NewNextDayStrategy(market),
		screener:  strategy.NewScreenerStrategy(market),
		rebalance: strategy.NewIndexRebalancingStrategy(st),
	}
}

// CycleResult summarizes one trading cycle.
type CycleResult struct {
	Status   string               `json:"status,omitempty"`
	Analyzed int                  `json:"analyzed"`
	Bought   int                  `json:"bought"`
	Sold     int                  `json:"sold"`
	Signals  []*strategy.Analysis `json:"signals"`
}

// RunCycle executes one trading cycle for a bot: first the
// reconciliation pass over the account's open holdings, then the
// watchlist scan. A cycle on a bot that is not ACTIVE is a no-op.
func (e *Engine) RunCycle(ctx context.Context, bot *models.AutoTradingBot) (*CycleResult, error) {
	if bot.Status != models.BotStatusActive {
		return &CycleResult{Status: "Bot is not active"}, nil
	}

	profile, err := ProfileFor(bot.RiskLevel)
	if err != nil {
		return nil, err
	}

	l := e.logger.With(zap.Uint("bot_id", bot.ID), zap.String("risk_level", bot.RiskLevel))
	l.Info("Starting trading cycle")

	result := &CycleResult{Signals: []*strategy.Analysis{}}

	// Exits run strictly before entries, so a position closed in this
	// cycle cannot be re-bought until the next one.
	sold, err := e.reconcileHoldings(ctx, bot, profile, l)
	if err != nil {
		return nil, err
	}
	result.Sold = sold

	for _, ticker := range profile.Stocks {
		analysis := e.analyzeTicker(ctx, bot, ticker, profile.MinConfidence)
		if analysis == nil {
			continue
		}
		result.Analyzed++
		result.Signals = append(result.Signals, analysis)

		if analysis.Action == strategy.ActionBuy && analysis.Confidence >= profile.MinConfidence {
			trade, err := e.executeBuy(ctx, bot, ticker, analysis, profile)
			if err != nil {
				l.Error("Buy execution failed", zap.String("ticker", ticker), zap.Error(err))
				continue
			}
			if trade != nil {
				result.Bought++
			}
		}
	}

	metrics.TradingCycles.Inc()
	l.Info("Trading cycle complete",
		zap.Int("analyzed", result.Analyzed),
		zap.Int("bought", result.Bought),
		zap.Int("sold", result.Sold))
	return result, nil
}

// reconcileHoldings refreshes the current price of every open holding
// of the bot's account and exits positions that crossed the stop-loss
// or take-profit threshold. Holdings whose price is unavailable are
// left stale and skipped. Returns the number of executed sells.
func (e *Engine) reconcileHoldings(ctx context.Context, bot *models.AutoTradingBot, profile RiskProfile, l *zap.Logger) (int, error) {
	holdings, err := e.store.HoldingsForUser(bot.UserID)
	if err != nil {
		return 0, fmt.Errorf("could not list holdings: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	sold := 0

	for i := range holdings {
		holding := &holdings[i]

		price, err := e.market.GetPrice(ctx, holding.Stock)
		if err != nil {
			metrics.PriceLookupFailures.Inc()
			l.Warn("Price unavailable, skipping holding",
				zap.String("ticker", holding.Stock), zap.Error(err))
			continue
		}
		holding.CurrentPrice = price
		if err := e.store.SaveHolding(holding); err != nil {
			l.Error("Failed to refresh holding price",
				zap.String("ticker", holding.Stock), zap.Error(err))
			continue
		}

		plPct := holding.ProfitLossPercentage()
		plFraction := plPct.Div(hundred)
		plFloat, _ := plPct.Float64()

		var reason string
		switch {
		case plFraction.LessThanOrEqual(profile.StopLoss.Neg()):
			reason = fmt.Sprintf("Stop Loss Triggered (%.1f%%)", plFloat)
		case plFraction.GreaterThanOrEqual(profile.TakeProfit):
			reason = fmt.Sprintf("Take Profit Triggered (%.1f%%)", plFloat)
		default:
			continue
		}

		trade, err := e.executeSell(ctx, bot, holding, reason)
		if err != nil {
			l.Error("Sell execution failed",
				zap.String("ticker", holding.Stock), zap.Error(err))
			continue
		}
		if trade != nil {
			sold++
		}
	}
	return sold, nil
}

// analyzeTicker collects the signals of every provider enabled on the
// bot and aggregates them into a decision. Providers that fail or
// abstain are skipped; a ticker with no valid signal yields nil.
func (e *Engine) analyzeTicker(ctx context.Context, bot *models.AutoTradingBot, ticker string, minConfidence float64) *strategy.Analysis {
	providers := e.enabledProviders(bot)
	signals := make([]strategy.ProviderSignal, 0, len(providers))

	for _, provider := range providers {
		signal, err := provider.Evaluate(ctx, ticker)
		if err != nil {
			e.logger.Debug("Signal provider abstained",
				zap.String("provider", provider.Name()),
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}
		signals = append(signals, strategy.ProviderSignal{
			Provider:    provider.Name(),
			Label:       signal.Label,
			Score:       signal.Score,
			Description: signal.Description,
		})
	}

	return strategy.Aggregate(ticker, signals, minConfidence)
}

func (e *Engine) enabledProviders(bot *models.AutoTradingBot) []strategy.Strategy {
	providers := make([]strategy.Strategy, 0, 4)
	if bot.UsePivotStrategy {
		providers = append(providers, e.pivot)
	}
	if bot.UsePrediction {
		providers = append(providers, e.nextDay)
	}
	if bot.UseScreener {
		providers = append(providers, e.screener)
	}
	if bot.UseIndexRebalancing {
		providers = append(providers, e.rebalance)
	}
	return providers
}

// executeBuy sizes a position against the bot's risk profile and
// applies it to the ledger. A violated precondition (no price, zero
// quantity, not enough capital or balance) declines the trade without
// error; the returned trade is nil in that case. All mutations commit
// atomically or not at all.
func (e *Engine) executeBuy(ctx context.Context, bot *models.AutoTradingBot, ticker string, analysis *strategy.Analysis, profile RiskProfile) (*models.BotTrade, error) {
	price, err := e.market.GetPrice(ctx, ticker)
	if err != nil {
		metrics.PriceLookupFailures.Inc()
		e.logger.Warn("Price unavailable, skipping buy",
			zap.String("ticker", ticker), zap.Error(err))
		return nil, nil
	}

	maxInvestment := bot.CurrentCapital.Mul(profile.MaxPositionSize)
	quantity := maxInvestment.Div(price).IntPart()
	if quantity == 0 {
		return nil, nil
	}

	totalCost := price.Mul(decimal.NewFromInt(quantity))
	if totalCost.GreaterThan(bot.CurrentCapital) {
		return nil, nil
	}

	now := time.Now()
	var trade *models.BotTrade

	err = e.store.Transaction(func(tx *store.Store) error {
		holding, err := tx.GetHoldingForUpdate(bot.UserID, ticker)
		switch {
		case err == nil:
			holding.ApplyBuy(quantity, price)
		case errors.Is(err, gorm.ErrRecordNotFound):
			holding = &models.Holding{
				UserID:       bot.UserID,
				Stock:        ticker,
				Quantity:     quantity,
				BuyingPrice:  price,
				CurrentPrice: price,
			}
		default:
			return err
		}
		if err := tx.SaveHolding(holding); err != nil {
			return err
		}

		if err := tx.DebitBalance(bot.UserID, totalCost); err != nil {
			return err
		}
		if err := tx.RecordBotBuy(bot.ID, totalCost, now); err != nil {
			return err
		}

		user, err := tx.GetUser(bot.UserID)
		if err != nil {
			return err
		}
		txn := &models.Transaction{
			UserID:          bot.UserID,
			TransactionType: models.TransactionTypeBuy,
			Debit:           totalCost,
			Credit:          decimal.Zero,
			Description:     fmt.Sprintf("[BOT] Bought %d shares of %s @ $%s", quantity, ticker, price),
			BalanceAfter:    user.Balance,
		}
		if err := tx.AppendTransaction(txn); err != nil {
			return err
		}

		trade = &models.BotTrade{
			BotID:           bot.ID,
			Stock:           ticker,
			Action:          models.TradeActionBuy,
			Quantity:        quantity,
			Price:           price,
			TotalValue:      totalCost,
			StrategyUsed:    analysis.Providers(),
			ConfidenceScore: decimal.NewFromFloat(analysis.Confidence).Round(2),
		}
		return tx.AppendBotTrade(trade)
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			e.logger.Warn("Buy declined, account balance too low",
				zap.String("ticker", ticker),
				zap.String("cost", totalCost.String()))
			return nil, nil
		}
		return nil, err
	}

	bot.CurrentCapital = bot.CurrentCapital.Sub(totalCost)
	bot.TotalTrades++
	bot.LastTradeAt = &now

	metrics.OrdersExecuted.WithLabelValues(models.TradeActionBuy).Inc()
	e.logger.Info("Executed buy",
		zap.Uint("bot_id", bot.ID),
		zap.String("ticker", ticker),
		zap.Int64("quantity", quantity),
		zap.String("price", price.String()))
	return trade, nil
}

// executeSell liquidates the full quantity of a holding and applies the
// proceeds to the ledger. Unavailable price declines the trade without
// error. A sell with zero realized profit counts as a losing trade.
func (e *Engine) executeSell(ctx context.Context, bot *models.AutoTradingBot, holding *models.Holding, reason string) (*models.BotTrade, error) {
	price, err := e.market.GetPrice(ctx, holding.Stock)
	if err != nil {
		metrics.PriceLookupFailures.Inc()
		e.logger.Warn("Price unavailable, skipping sell",
			zap.String("ticker", holding.Stock), zap.Error(err))
		return nil, nil
	}

	quantity := decimal.NewFromInt(holding.Quantity)
	revenue := price.Mul(quantity)
	profitLoss := revenue.Sub(holding.BuyingPrice.Mul(quantity))
	winning := profitLoss.IsPositive()

	now := time.Now()
	var trade *models.BotTrade

	err = e.store.Transaction(func(tx *store.Store) error {
		if err := tx.DeleteHolding(holding); err != nil {
			return err
		}
		if err := tx.CreditBalance(bot.UserID, revenue); err != nil {
			return err
		}
		if err := tx.RecordBotSell(bot.ID, revenue, profitLoss, winning, now); err != nil {
			return err
		}

		user, err := tx.GetUser(bot.UserID)
		if err != nil {
			return err
		}
		txn := &models.Transaction{
			UserID:          bot.UserID,
			TransactionType: models.TransactionTypeSell,
			Debit:           decimal.Zero,
			Credit:          revenue,
			Description: fmt.Sprintf("[BOT] Sold %d shares of %s @ $%s (%s)",
				holding.Quantity, holding.Stock, price, reason),
			BalanceAfter: user.Balance,
		}
		if err := tx.AppendTransaction(txn); err != nil {
			return err
		}

		trade = &models.BotTrade{
			BotID:        bot.ID,
			Stock:        holding.Stock,
			Action:       models.TradeActionSell,
			Quantity:     holding.Quantity,
			Price:        price,
			TotalValue:   revenue,
			StrategyUsed: reason,
			ProfitLoss:   profitLoss,
		}
		return tx.AppendBotTrade(trade)
	})
	if err != nil {
		return nil, err
	}

	bot.CurrentCapital = bot.CurrentCapital.Add(revenue)
	bot.TotalProfitLoss = bot.TotalProfitLoss.Add(profitLoss)
	bot.TotalTrades++
	if winning {
		bot.WinningTrades++
	} else {
		bot.LosingTrades++
	}
	bot.LastTradeAt = &now

	metrics.OrdersExecuted.WithLabelValues(models.TradeActionSell).Inc()
	e.logger.Info("Executed sell",
		zap.Uint("bot_id", bot.ID),
		zap.String("ticker", holding.Stock),
		zap.Int64("quantity", holding.Quantity),
		zap.String("price", price.String()),
		zap.String("profit_loss", profitLoss.String()),
		zap.String("reason", reason))
	return trade, nil
}

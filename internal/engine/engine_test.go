package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/strategy"
)

// MockMarketClient is a mock implementation of marketdata.ClientInterface.
type MockMarketClient struct {
	mock.Mock
}

func (m *MockMarketClient) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMarketClient) GetQuote(ctx context.Context, ticker string) (*marketdata.Quote, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketdata.Quote), args.Error(1)
}

func (m *MockMarketClient) GetCompanyProfile(ctx context.Context, ticker string) (*marketdata.CompanyProfile, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketdata.CompanyProfile), args.Error(1)
}

var _ marketdata.ClientInterface = (*MockMarketClient)(nil)

func setupEngineTest(t *testing.T) (*store.Store, *MockMarketClient, *Engine) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(
		&models.User{},
		&models.Holding{},
		&models.Transaction{},
		&models.AutoTradingBot{},
		&models.BotTrade{},
		&models.IndexEvent{},
	)
	assert.NoError(t, err)

	st := store.New(db)
	market := new(MockMarketClient)
	return st, market, New(st, market, zap.NewNop())
}

func createEngineUser(t *testing.T, st *store.Store, balance string) *models.User {
	user := &models.User{
		Email:        "trader@example.com",
		PasswordHash: "x",
		Balance:      decimal.RequireFromString(balance),
	}
	assert.NoError(t, st.CreateUser(user))
	return user
}

func createEngineBot(t *testing.T, st *store.Store, userID uint, riskLevel, capital string) *models.AutoTradingBot {
	bot := &models.AutoTradingBot{
		UserID:         userID,
		Name:           "test-bot",
		Status:         models.BotStatusActive,
		RiskLevel:      riskLevel,
		InitialCapital: decimal.RequireFromString(capital),
		CurrentCapital: decimal.RequireFromString(capital),
	}
	assert.NoError(t, st.CreateBot(bot))
	return bot
}

func TestRunCycleInactiveBot(t *testing.T) {
	_, _, eng := setupEngineTest(t)

	bot := &models.AutoTradingBot{Status: models.BotStatusPaused}
	result, err := eng.RunCycle(context.Background(), bot)

	assert.NoError(t, err)
	assert.Equal(t, "Bot is not active", result.Status)
	assert.Zero(t, result.Analyzed)
}

func TestRunCycleUnknownRiskLevel(t *testing.T) {
	_, _, eng := setupEngineTest(t)

	bot := &models.AutoTradingBot{Status: models.BotStatusActive, RiskLevel: "EXTREME"}
	_, err := eng.RunCycle(context.Background(), bot)

	assert.ErrorIs(t, err, ErrUnknownRiskLevel)
}

func TestExecuteBuySizesPosition(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "100000")
	bot := createEngineBot(t, st, user.ID, models.RiskMedium, "10000")

	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("100"), nil)

	profile, err := ProfileFor(models.RiskMedium)
	assert.NoError(t, err)
	analysis := &strategy.Analysis{
		Ticker:     "AAPL",
		Action:     strategy.ActionBuy,
		Confidence: 85,
		Signals: []strategy.ProviderSignal{
			{Provider: "Pivot"},
			{Provider: "Screener"},
		},
	}

	trade, err := eng.executeBuy(context.Background(), bot, "AAPL", analysis, profile)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	// 15% of 10000 capital at $100 buys 15 shares.
	assert.Equal(t, int64(15), trade.Quantity)
	assert.Equal(t, "1500", trade.TotalValue.String())
	assert.Equal(t, models.TradeActionBuy, trade.Action)
	assert.Equal(t, "Pivot, Screener", trade.StrategyUsed)
	assert.Equal(t, "85", trade.ConfidenceScore.String())

	holding, err := st.GetHolding(user.ID, "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, int64(15), holding.Quantity)
	assert.Equal(t, "100", holding.BuyingPrice.String())

	account, err := st.GetUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "98500", account.Balance.String())

	txns, err := st.TransactionsForUser(user.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, models.TransactionTypeBuy, txns[0].TransactionType)
	assert.Equal(t, "1500", txns[0].Debit.String())
	assert.Equal(t, "98500", txns[0].BalanceAfter.String())
	assert.Equal(t, "[BOT] Bought 15 shares of AAPL @ $100", txns[0].Description)

	stored, err := st.GetBot(bot.ID)
	assert.NoError(t, err)
	assert.Equal(t, "8500", stored.CurrentCapital.String())
	assert.Equal(t, 1, stored.TotalTrades)
	assert.NotNil(t, stored.LastTradeAt)

	// In-memory bot mirrors the committed row.
	assert.Equal(t, "8500", bot.CurrentCapital.String())
	assert.Equal(t, 1, bot.TotalTrades)
}

func TestExecuteBuyMergesExistingHolding(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "100000")
	bot := createEngineBot(t, st, user.ID, models.RiskMedium, "10000")

	assert.NoError(t, st.SaveHolding(&models.Holding{
		UserID:       user.ID,
		Stock:        "AAPL",
		Quantity:     10,
		BuyingPrice:  decimal.RequireFromString("100"),
		CurrentPrice: decimal.RequireFromString("100"),
	}))

	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("100"), nil)

	profile, err := ProfileFor(models.RiskMedium)
	assert.NoError(t, err)
	analysis := &strategy.Analysis{Ticker: "AAPL", Action: strategy.ActionBuy, Confidence: 80}

	trade, err := eng.executeBuy(context.Background(), bot, "AAPL", analysis, profile)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	holding, err := st.GetHolding(user.ID, "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, int64(25), holding.Quantity)
	assert.Equal(t, "100", holding.BuyingPrice.String())
}

func TestExecuteBuyDeclines(t *testing.T) {
	t.Run("PriceUnavailable", func(t *testing.T) {
		st, market, eng := setupEngineTest(t)
		user := createEngineUser(t, st, "100000")
		bot := createEngineBot(t, st, user.ID, models.RiskMedium, "10000")

		market.On("GetPrice", mock.Anything, "AAPL").
			Return(decimal.Decimal{}, marketdata.ErrUnavailable)

		profile, _ := ProfileFor(models.RiskMedium)
		analysis := &strategy.Analysis{Ticker: "AAPL", Action: strategy.ActionBuy, Confidence: 80}

		trade, err := eng.executeBuy(context.Background(), bot, "AAPL", analysis, profile)
		assert.NoError(t, err)
		assert.Nil(t, trade)
	})

	t.Run("ZeroQuantity", func(t *testing.T) {
		st, market, eng := setupEngineTest(t)
		user := createEngineUser(t, st, "100000")
		bot := createEngineBot(t, st, user.ID, models.RiskMedium, "100")

		// 15% of 100 capital cannot afford a single $100 share.
		market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("100"), nil)

		profile, _ := ProfileFor(models.RiskMedium)
		analysis := &strategy.Analysis{Ticker: "AAPL", Action: strategy.ActionBuy, Confidence: 80}

		trade, err := eng.executeBuy(context.Background(), bot, "AAPL", analysis, profile)
		assert.NoError(t, err)
		assert.Nil(t, trade)

		_, err = st.GetHolding(user.ID, "AAPL")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		st, market, eng := setupEngineTest(t)
		user := createEngineUser(t, st, "1000")
		bot := createEngineBot(t, st, user.ID, models.RiskMedium, "10000")

		// The buy costs 1500; the account only holds 1000. Everything
		// must roll back.
		market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("100"), nil)

		profile, _ := ProfileFor(models.RiskMedium)
		analysis := &strategy.Analysis{Ticker: "AAPL", Action: strategy.ActionBuy, Confidence: 80}

		trade, err := eng.executeBuy(context.Background(), bot, "AAPL", analysis, profile)
		assert.NoError(t, err)
		assert.Nil(t, trade)

		_, err = st.GetHolding(user.ID, "AAPL")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		txns, err := st.TransactionsForUser(user.ID, 0)
		assert.NoError(t, err)
		assert.Empty(t, txns)

		account, err := st.GetUser(user.ID)
		assert.NoError(t, err)
		assert.Equal(t, "1000", account.Balance.String())

		stored, err := st.GetBot(bot.ID)
		assert.NoError(t, err)
		assert.Equal(t, "10000", stored.CurrentCapital.String())
		assert.Zero(t, stored.TotalTrades)
		assert.Equal(t, "10000", bot.CurrentCapital.String())
	})
}

func TestRunCycleStopLoss(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "50000")
	bot := createEngineBot(t, st, user.ID, models.RiskLow, "10000")

	assert.NoError(t, st.SaveHolding(&models.Holding{
		UserID:       user.ID,
		Stock:        "AAPL",
		Quantity:     10,
		BuyingPrice:  decimal.RequireFromString("100"),
		CurrentPrice: decimal.RequireFromString("100"),
	}))

	// -9% breaches the LOW profile's 5% stop loss.
	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("91"), nil)

	result, err := eng.RunCycle(context.Background(), bot)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Sold)
	assert.Zero(t, result.Analyzed)

	_, err = st.GetHolding(user.ID, "AAPL")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	account, err := st.GetUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "50910", account.Balance.String())

	stored, err := st.GetBot(bot.ID)
	assert.NoError(t, err)
	assert.Equal(t, "10910", stored.CurrentCapital.String())
	assert.Equal(t, 1, stored.TotalTrades)
	assert.Equal(t, 1, stored.LosingTrades)
	assert.Zero(t, stored.WinningTrades)
	assert.Equal(t, "-90", stored.TotalProfitLoss.String())

	trades, err := st.TradesForBot(bot.ID)
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, models.TradeActionSell, trades[0].Action)
	assert.Equal(t, "Stop Loss Triggered (-9.0%)", trades[0].StrategyUsed)
	assert.Equal(t, "-90", trades[0].ProfitLoss.String())

	txns, err := st.TransactionsForUser(user.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, "[BOT] Sold 10 shares of AAPL @ $91 (Stop Loss Triggered (-9.0%))", txns[0].Description)
}

func TestRunCycleTakeProfit(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "50000")
	bot := createEngineBot(t, st, user.ID, models.RiskLow, "10000")

	assert.NoError(t, st.SaveHolding(&models.Holding{
		UserID:       user.ID,
		Stock:        "AAPL",
		Quantity:     10,
		BuyingPrice:  decimal.RequireFromString("100"),
		CurrentPrice: decimal.RequireFromString("100"),
	}))

	// +9% clears the LOW profile's 8% take profit.
	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("109"), nil)

	result, err := eng.RunCycle(context.Background(), bot)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Sold)

	stored, err := st.GetBot(bot.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, stored.WinningTrades)
	assert.Zero(t, stored.LosingTrades)
	assert.Equal(t, "90", stored.TotalProfitLoss.String())
	assert.Equal(t, "11090", stored.CurrentCapital.String())

	trades, err := st.TradesForBot(bot.ID)
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, "Take Profit Triggered (9.0%)", trades[0].StrategyUsed)
}

func TestRunCycleHoldingWithinBands(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "50000")
	bot := createEngineBot(t, st, user.ID, models.RiskLow, "10000")

	assert.NoError(t, st.SaveHolding(&models.Holding{
		UserID:       user.ID,
		Stock:        "AAPL",
		Quantity:     10,
		BuyingPrice:  decimal.RequireFromString("100"),
		CurrentPrice: decimal.RequireFromString("100"),
	}))

	// -1% sits inside the bands; the price refresh still persists.
	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("99"), nil)

	result, err := eng.RunCycle(context.Background(), bot)
	assert.NoError(t, err)
	assert.Zero(t, result.Sold)

	holding, err := st.GetHolding(user.ID, "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, "99", holding.CurrentPrice.String())
	assert.Equal(t, int64(10), holding.Quantity)
}

func TestRunCyclePriceUnavailableSkipsHolding(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "50000")
	bot := createEngineBot(t, st, user.ID, models.RiskLow, "10000")

	assert.NoError(t, st.SaveHolding(&models.Holding{
		UserID:       user.ID,
		Stock:        "AAPL",
		Quantity:     10,
		BuyingPrice:  decimal.RequireFromString("100"),
		CurrentPrice: decimal.RequireFromString("100"),
	}))

	market.On("GetPrice", mock.Anything, "AAPL").
		Return(decimal.Decimal{}, marketdata.ErrUnavailable)

	result, err := eng.RunCycle(context.Background(), bot)
	assert.NoError(t, err)
	assert.Zero(t, result.Sold)

	holding, err := st.GetHolding(user.ID, "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, "100", holding.CurrentPrice.String())
}

func TestExecuteSellZeroProfitIsLosing(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "50000")
	bot := createEngineBot(t, st, user.ID, models.RiskLow, "10000")

	holding := &models.Holding{
		UserID:       user.ID,
		Stock:        "AAPL",
		Quantity:     10,
		BuyingPrice:  decimal.RequireFromString("100"),
		CurrentPrice: decimal.RequireFromString("100"),
	}
	assert.NoError(t, st.SaveHolding(holding))

	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("100"), nil)

	trade, err := eng.executeSell(context.Background(), bot, holding, "Stop Loss Triggered (0.0%)")
	assert.NoError(t, err)
	assert.NotNil(t, trade)
	assert.True(t, trade.ProfitLoss.IsZero())

	stored, err := st.GetBot(bot.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, stored.LosingTrades)
	assert.Zero(t, stored.WinningTrades)
}

func TestRunCycleBuysOnPivotSignal(t *testing.T) {
	st, market, eng := setupEngineTest(t)
	user := createEngineUser(t, st, "100000")

	bot := &models.AutoTradingBot{
		UserID:           user.ID,
		Name:             "pivot-only",
		Status:           models.BotStatusActive,
		RiskLevel:        models.RiskLow,
		InitialCapital:   decimal.RequireFromString("10000"),
		CurrentCapital:   decimal.RequireFromString("10000"),
		UsePivotStrategy: true,
	}
	assert.NoError(t, st.CreateBot(bot))

	// The previous session closed far above R2: STRONG_BUY at score 90,
	// clearing the LOW profile's 70-point confidence floor.
	market.On("GetQuote", mock.Anything, "AAPL").Return(&marketdata.Quote{
		Ticker:    "AAPL",
		PrevHigh:  100,
		PrevLow:   90,
		PrevClose: 120,
	}, nil)
	market.On("GetQuote", mock.Anything, mock.Anything).
		Return(nil, marketdata.ErrUnavailable)
	market.On("GetPrice", mock.Anything, "AAPL").Return(decimal.RequireFromString("150"), nil)

	result, err := eng.RunCycle(context.Background(), bot)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Analyzed)
	assert.Equal(t, 1, result.Bought)
	assert.Zero(t, result.Sold)
	assert.Len(t, result.Signals, 1)
	assert.Equal(t, strategy.ActionBuy, result.Signals[0].Action)
	assert.Equal(t, 90.0, result.Signals[0].Confidence)

	// 10% of 10000 capital at $150 floors to 6 shares.
	holding, err := st.GetHolding(user.ID, "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, int64(6), holding.Quantity)
	assert.Equal(t, "150", holding.BuyingPrice.String())

	account, err := st.GetUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "99100", account.Balance.String())

	stored, err := st.GetBot(bot.ID)
	assert.NoError(t, err)
	assert.Equal(t, "9100", stored.CurrentCapital.String())

	trades, err := st.TradesForBot(bot.ID)
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, "Pivot", trades[0].StrategyUsed)
	assert.Equal(t, "90", trades[0].ConfidenceScore.String())
}

func TestEnabledProviders(t *testing.T) {
	_, _, eng := setupEngineTest(t)

	all := eng.enabledProviders(&models.AutoTradingBot{
		UsePivotStrategy:    true,
		UsePrediction:       true,
		UseScreener:         true,
		UseIndexRebalancing: true,
	})
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name()
	}
	assert.Equal(t, []string{"Pivot", "Prediction", "Screener", "IndexRebalancing"}, names)

	none := eng.enabledProviders(&models.AutoTradingBot{})
	assert.Empty(t, none)
}

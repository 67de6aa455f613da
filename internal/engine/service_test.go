package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
)

func setupServiceTest(t *testing.T) (*store.Store, *Service) {
	st, _, eng := setupEngineTest(t)
	return st, NewService(st, eng, zap.NewNop())
}

func TestCreateBot(t *testing.T) {
	st, svc := setupServiceTest(t)
	user := createEngineUser(t, st, "100000")

	bot, err := svc.CreateBot(CreateBotParams{
		UserID:              user.ID,
		Name:                "growth",
		RiskLevel:           models.RiskMedium,
		Duration:            models.DurationLong,
		InitialCapital:      decimal.RequireFromString("20000"),
		UsePivotStrategy:    true,
		UsePrediction:       true,
		UseScreener:         true,
		UseIndexRebalancing: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BotStatusActive, bot.Status)
	assert.Equal(t, "20000", bot.CurrentCapital.String())
	assert.Equal(t, "15", bot.ExpectedReturn.String())

	account, err := st.GetUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "80000", account.Balance.String())
}

func TestCreateBotDefaultName(t *testing.T) {
	st, svc := setupServiceTest(t)
	user := createEngineUser(t, st, "100000")

	bot, err := svc.CreateBot(CreateBotParams{
		UserID:         user.ID,
		RiskLevel:      models.RiskHigh,
		Duration:       models.DurationShort,
		InitialCapital: decimal.RequireFromString("5000"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "AutoBot-HIGH", bot.Name)
}

func TestCreateBotValidation(t *testing.T) {
	st, svc := setupServiceTest(t)
	user := createEngineUser(t, st, "100000")

	t.Run("NonPositiveCapital", func(t *testing.T) {
		_, err := svc.CreateBot(CreateBotParams{
			UserID:    user.ID,
			RiskLevel: models.RiskLow,
			Duration:  models.DurationShort,
		})
		assert.ErrorIs(t, err, ErrInvalidCapital)
	})

	t.Run("UnknownRiskLevel", func(t *testing.T) {
		_, err := svc.CreateBot(CreateBotParams{
			UserID:         user.ID,
			RiskLevel:      "YOLO",
			Duration:       models.DurationShort,
			InitialCapital: decimal.NewFromInt(1000),
		})
		assert.ErrorIs(t, err, ErrUnknownRiskLevel)
	})

	t.Run("UnknownDuration", func(t *testing.T) {
		_, err := svc.CreateBot(CreateBotParams{
			UserID:         user.ID,
			RiskLevel:      models.RiskLow,
			Duration:       "FOREVER",
			InitialCapital: decimal.NewFromInt(1000),
		})
		assert.ErrorIs(t, err, ErrUnknownDuration)
	})

	t.Run("CapitalExceedsBalance", func(t *testing.T) {
		_, err := svc.CreateBot(CreateBotParams{
			UserID:         user.ID,
			RiskLevel:      models.RiskLow,
			Duration:       models.DurationShort,
			InitialCapital: decimal.RequireFromString("200000"),
		})
		assert.ErrorIs(t, err, store.ErrInsufficientBalance)

		bots, err := svc.ListBots(user.ID)
		assert.NoError(t, err)
		assert.Empty(t, bots)

		account, err := st.GetUser(user.ID)
		assert.NoError(t, err)
		assert.Equal(t, "100000", account.Balance.String())
	})
}

func TestBotLifecycle(t *testing.T) {
	st, svc := setupServiceTest(t)
	user := createEngineUser(t, st, "100000")

	bot, err := svc.CreateBot(CreateBotParams{
		UserID:         user.ID,
		Name:           "cycle",
		RiskLevel:      models.RiskLow,
		Duration:       models.DurationShort,
		InitialCapital: decimal.RequireFromString("20000"),
	})
	assert.NoError(t, err)

	paused, err := svc.PauseBot(bot.ID, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BotStatusPaused, paused.Status)

	// Pausing again is a no-op.
	paused, err = svc.PauseBot(bot.ID, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BotStatusPaused, paused.Status)

	started, err := svc.StartBot(bot.ID, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BotStatusActive, started.Status)

	result, err := svc.StopBot(bot.ID, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BotStatusStopped, result.Bot.Status)
	assert.Equal(t, "20000", result.CapitalReturned.String())

	account, err := st.GetUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "100000", account.Balance.String())

	// STOPPED is terminal.
	_, err = svc.StartBot(bot.ID, user.ID)
	assert.ErrorIs(t, err, ErrBotStopped)
	_, err = svc.PauseBot(bot.ID, user.ID)
	assert.ErrorIs(t, err, ErrBotStopped)
	_, err = svc.StopBot(bot.ID, user.ID)
	assert.ErrorIs(t, err, ErrBotStopped)
}

func TestStopBotReportsFinalAccounting(t *testing.T) {
	st, svc := setupServiceTest(t)
	user := createEngineUser(t, st, "100000")

	bot, err := svc.CreateBot(CreateBotParams{
		UserID:         user.ID,
		Name:           "loser",
		RiskLevel:      models.RiskHigh,
		Duration:       models.DurationShort,
		InitialCapital: decimal.RequireFromString("20000"),
	})
	assert.NoError(t, err)

	// Simulate a losing run before the stop.
	err = st.UpdateBotFields(bot.ID, map[string]interface{}{
		"current_capital":   decimal.RequireFromString("15000"),
		"total_profit_loss": decimal.RequireFromString("-5000"),
	})
	assert.NoError(t, err)

	result, err := svc.StopBot(bot.ID, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "15000", result.CapitalReturned.String())
	assert.Equal(t, "-5000", result.TotalProfitLoss.String())
	assert.Equal(t, "-25", result.ROI.String())

	account, err := st.GetUser(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "95000", account.Balance.String())
}

func TestServiceOwnershipChecks(t *testing.T) {
	st, svc := setupServiceTest(t)
	user := createEngineUser(t, st, "100000")

	bot, err := svc.CreateBot(CreateBotParams{
		UserID:         user.ID,
		Name:           "mine",
		RiskLevel:      models.RiskLow,
		Duration:       models.DurationShort,
		InitialCapital: decimal.RequireFromString("5000"),
	})
	assert.NoError(t, err)

	stranger := user.ID + 1

	_, err = svc.GetBot(bot.ID, stranger)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.RunCycle(context.Background(), bot.ID, stranger)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.TradesForBot(bot.ID, stranger)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	trades, err := svc.TradesForBot(bot.ID, user.ID)
	assert.NoError(t, err)
	assert.Empty(t, trades)
}

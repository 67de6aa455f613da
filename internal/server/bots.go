package server

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/auth"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/engine"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
)

type createBotRequest struct {
	Name                string          `json:"name"`
	RiskLevel           string          `json:"risk_level" binding:"required"`
	Duration            string          `json:"duration" binding:"required"`
	InitialCapital      decimal.Decimal `json:"initial_capital"`
	UsePivotStrategy    *bool           `json:"use_pivot_strategy"`
	UsePrediction       *bool           `json:"use_prediction"`
	UseScreener         *bool           `json:"use_screener"`
	UseIndexRebalancing *bool           `json:"use_index_rebalancing"`
}

// Strategy toggles default to on; a bot with every toggle off only ever
// exits positions.
func orDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func botStatistics(bot *models.AutoTradingBot) gin.H {
	return gin.H{
		"total_trades":      bot.TotalTrades,
		"winning_trades":    bot.WinningTrades,
		"losing_trades":     bot.LosingTrades,
		"win_rate":          math.Round(bot.WinRate()*100) / 100,
		"total_profit_loss": bot.TotalProfitLoss,
		"roi_percentage":    bot.ROIPercentage().Round(2),
	}
}

func (s *Server) handleCreateBot(c *gin.Context) {
	var req createBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot, err := s.bots.CreateBot(engine.CreateBotParams{
		UserID:              auth.UserID(c),
		Name:                req.Name,
		RiskLevel:           strings.ToUpper(req.RiskLevel),
		Duration:            strings.ToUpper(req.Duration),
		InitialCapital:      req.InitialCapital,
		UsePivotStrategy:    orDefault(req.UsePivotStrategy, true),
		UsePrediction:       orDefault(req.UsePrediction, true),
		UseScreener:         orDefault(req.UseScreener, true),
		UseIndexRebalancing: orDefault(req.UseIndexRebalancing, true),
	})
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bot created successfully",
		"bot":     bot,
	})
}

func (s *Server) handleListBots(c *gin.Context) {
	bots, err := s.bots.ListBots(auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bots":  bots,
		"count": len(bots),
	})
}

func (s *Server) handleGetBot(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	bot, err := s.bots.GetBot(id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	trades, err := s.bots.TradesForBot(id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	if len(trades) > 10 {
		trades = trades[:10]
	}

	c.JSON(http.StatusOK, gin.H{
		"bot":           bot,
		"statistics":    botStatistics(bot),
		"recent_trades": trades,
	})
}

func (s *Server) handleStartBot(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	bot, err := s.bots.StartBot(id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bot started",
		"bot":     bot,
	})
}

func (s *Server) handlePauseBot(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	bot, err := s.bots.PauseBot(id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bot paused",
		"bot":     bot,
	})
}

func (s *Server) handleStopBot(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := s.bots.StopBot(id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Bot stopped",
		"bot":               result.Bot,
		"capital_returned":  result.CapitalReturned,
		"total_profit_loss": result.TotalProfitLoss,
		"roi_percentage":    result.ROI,
	})
}

func (s *Server) handleRunCycle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := s.bots.RunCycle(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBotTrades(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	trades, err := s.bots.TradesForBot(id, auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trades": trades,
		"count":  len(trades),
	})
}

func (s *Server) handleRiskProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": engine.ProfileCatalog()})
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/auth"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/config"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/engine"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/ledger"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/store"
	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/strategy"
)

// Server wires the HTTP API over the trading services.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	store  *store.Store
	auth   *auth.Service
	ledger *ledger.Service
	bots   *engine.Service
	market marketdata.ClientInterface

	pivot     *strategy.PivotStrategy
	nextDay   *strategy.NextDayStrategy
	screener  *strategy.ScreenerStrategy
	rebalance *strategy.IndexRebalancingStrategy
}

// New creates the API server. The strategy instances back the manual
// analysis endpoints; the engine holds its own.
func New(cfg config.Config, logger *zap.Logger, st *store.Store, authSvc *auth.Service, ledgerSvc *ledger.Service, botSvc *engine.Service, market marketdata.ClientInterface) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		auth:      authSvc,
		ledger:    ledgerSvc,
		bots:      botSvc,
		market:    market,
		pivot:     strategy.NewPivotStrategy(market),
		nextDay:   strategy.NewNextDayStrategy(market),
		screener:  strategy.NewScreenerStrategy(market),
		rebalance: strategy.NewIndexRebalancingStrategy(st),
	}
}

// Router builds the gin engine with all routes registered. Register,
// login, the live price lookups, health and metrics are open; the rest
// requires a bearer token.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(s.logger), gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)
	api.GET("/live-price", s.handleLivePrice)
	api.POST("/live-prices", s.handleLivePrices)

	authed := api.Group("")
	authed.Use(s.auth.Middleware())

	authed.POST("/logout", s.handleLogout)
	authed.GET("/profile", s.handleGetProfile)
	authed.PATCH("/profile", s.handleUpdateProfile)

	authed.POST("/buy", s.handleBuy)
	authed.POST("/sell", s.handleSell)
	authed.GET("/portfolio", s.handlePortfolio)
	authed.GET("/holdings", s.handleHoldings)
	authed.GET("/holdings/summary", s.handleHoldingsSummary)
	authed.GET("/holdings/profitable", s.handleProfitableHoldings)
	authed.GET("/holdings/losing", s.handleLosingHoldings)
	authed.GET("/transactions", s.handleTransactions)
	authed.GET("/transactions/recent", s.handleRecentTransactions)
	authed.GET("/transactions/summary", s.handleTransactionSummary)

	authed.POST("/ml/pivot", s.handlePivotAnalysis)
	authed.POST("/ml/next-day", s.handleNextDayAnalysis)
	authed.POST("/ml/screener", s.handleScreenerAnalysis)
	authed.POST("/ml/index-rebalancing", s.handleRebalanceAnalysis)
	authed.GET("/index-events", s.handleListIndexEvents)
	authed.POST("/index-events", s.handleCreateIndexEvent)

	authed.POST("/bots", s.handleCreateBot)
	authed.GET("/bots", s.handleListBots)
	authed.GET("/bots/:id", s.handleGetBot)
	authed.POST("/bots/:id/start", s.handleStartBot)
	authed.POST("/bots/:id/pause", s.handlePauseBot)
	authed.POST("/bots/:id/stop", s.handleStopBot)
	authed.POST("/bots/:id/run-cycle", s.handleRunCycle)
	authed.GET("/bots/:id/trades", s.handleBotTrades)
	authed.GET("/risk-profiles", s.handleRiskProfiles)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger emits one structured access log line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// renderError maps service errors onto HTTP statuses: decline sentinels
// become 400, missing rows 404, everything else 500.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInvalidOrder),
		errors.Is(err, ledger.ErrUnknownHolding),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrPriceUnavailable),
		errors.Is(err, engine.ErrInvalidCapital),
		errors.Is(err, engine.ErrBotStopped),
		errors.Is(err, engine.ErrUnknownRiskLevel),
		errors.Is(err, engine.ErrUnknownDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

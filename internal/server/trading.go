package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/auth"
)

type orderRequest struct {
	Stock    string `json:"stock" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

func (s *Server) handleBuy(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := s.ledger.BuyStock(c.Request.Context(), auth.UserID(c), req.Stock, req.Quantity)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully bought %d shares of %s", receipt.Quantity, receipt.Stock),
		"receipt": receipt,
	})
}

func (s *Server) handleSell(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := s.ledger.SellStock(c.Request.Context(), auth.UserID(c), req.Stock, req.Quantity)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully sold %d shares of %s", receipt.Quantity, receipt.Stock),
		"receipt": receipt,
	})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	holdings, summary, err := s.ledger.Portfolio(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"holdings": holdings,
		"summary":  summary,
	})
}

func (s *Server) handleHoldings(c *gin.Context) {
	holdings, err := s.ledger.RefreshHoldings(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

func (s *Server) handleHoldingsSummary(c *gin.Context) {
	_, summary, err := s.ledger.Portfolio(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleProfitableHoldings(c *gin.Context) {
	holdings, err := s.ledger.ProfitableHoldings(auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

func (s *Server) handleLosingHoldings(c *gin.Context) {
	holdings, err := s.ledger.LosingHoldings(auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

func (s *Server) handleTransactions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	txns, err := s.ledger.Transactions(auth.UserID(c), limit)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"count":        len(txns),
	})
}

func (s *Server) handleRecentTransactions(c *gin.Context) {
	txns, err := s.ledger.Transactions(auth.UserID(c), 10)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"count":        len(txns),
	})
}

func (s *Server) handleTransactionSummary(c *gin.Context) {
	summary, err := s.ledger.SummarizeTransactions(auth.UserID(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleLivePrice(c *gin.Context) {
	ticker := normalizeQueryTicker(c.Query("ticker"))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker query parameter required"})
		return
	}

	quote, err := s.market.GetQuote(c.Request.Context(), ticker)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no data for %s", ticker)})
		return
	}

	response := gin.H{
		"ticker":         quote.Ticker,
		"current_price":  quote.CurrentPrice,
		"open":           quote.Open,
		"high":           quote.High,
		"low":            quote.Low,
		"volume":         quote.Volume,
		"previous_close": quote.PrevClose,
	}

	// Fundamentals are a nice-to-have; the quote alone is a valid answer.
	if profile, err := s.market.GetCompanyProfile(c.Request.Context(), ticker); err == nil {
		response["company_name"] = profile.Name
		response["sector"] = profile.Sector
		response["market_cap"] = profile.MarketCap
	}

	c.JSON(http.StatusOK, response)
}

type livePricesRequest struct {
	Tickers []string `json:"tickers" binding:"required,min=1"`
}

func (s *Server) handleLivePrices(c *gin.Context) {
	var req livePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prices := make(map[string]interface{}, len(req.Tickers))
	for _, raw := range req.Tickers {
		ticker := normalizeQueryTicker(raw)
		if ticker == "" {
			continue
		}
		price, err := s.market.GetPrice(c.Request.Context(), ticker)
		if err != nil {
			prices[ticker] = nil
			continue
		}
		prices[ticker] = price
	}

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

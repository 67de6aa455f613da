package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
)

const dateLayout = "2006-01-02"

type pivotRequest struct {
	Ticker string  `json:"ticker"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
}

// handlePivotAnalysis runs the pivot analysis either on a ticker's live
// previous session or on an explicitly supplied bar.
func (s *Server) handlePivotAnalysis(c *gin.Context) {
	var req pivotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ticker := normalizeQueryTicker(req.Ticker); ticker != "" {
		result, err := s.pivot.AnalyzeTicker(c.Request.Context(), ticker)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no market data for " + ticker})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if req.High <= 0 || req.Low <= 0 || req.Close <= 0 || req.High < req.Low {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide a ticker or a valid high/low/close bar"})
		return
	}
	c.JSON(http.StatusOK, s.pivot.Analyze(req.High, req.Low, req.Close))
}

type nextDayRequest struct {
	Ticker string  `json:"ticker"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// handleNextDayAnalysis calls tomorrow's direction from today's bar,
// live or explicit.
func (s *Server) handleNextDayAnalysis(c *gin.Context) {
	var req nextDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ticker := normalizeQueryTicker(req.Ticker); ticker != "" {
		result, err := s.nextDay.AnalyzeTicker(c.Request.Context(), ticker)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no market data for " + ticker})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if req.Open <= 0 || req.Close <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide a ticker or a valid OHLCV bar"})
		return
	}
	c.JSON(http.StatusOK, s.nextDay.Analyze(req.Open, req.High, req.Low, req.Close, req.Volume))
}

type screenerRequest struct {
	Ticker      string  `json:"ticker"`
	CompanyName string  `json:"company_name"`
	MarketCap   float64 `json:"market_cap"`
	Volume      int64   `json:"volume"`
	Sector      string  `json:"sector"`
}

// handleScreenerAnalysis scores index addition candidacy from live or
// explicit fundamentals.
func (s *Server) handleScreenerAnalysis(c *gin.Context) {
	var req screenerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ticker := normalizeQueryTicker(req.Ticker); ticker != "" {
		result, err := s.screener.ScreenTicker(c.Request.Context(), ticker)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no fundamentals for " + ticker})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if req.MarketCap <= 0 || req.Volume <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide a ticker or market_cap and volume"})
		return
	}
	name := req.CompanyName
	if name == "" {
		name = "Unknown"
	}
	c.JSON(http.StatusOK, s.screener.Screen(name, req.MarketCap, req.Volume, req.Sector))
}

type rebalanceRequest struct {
	Ticker           string `json:"ticker" binding:"required"`
	EventType        string `json:"event_type" binding:"required"`
	IndexName        string `json:"index_name"`
	AnnouncementDate string `json:"announcement_date"`
	EffectiveDate    string `json:"effective_date" binding:"required"`
}

// handleRebalanceAnalysis analyzes a hypothetical or announced index
// constituent change, projecting a target from the live price when one
// is available.
func (s *Server) handleRebalanceAnalysis(c *gin.Context) {
	var req rebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventType := strings.ToUpper(strings.TrimSpace(req.EventType))
	if eventType != models.IndexEventAdd && eventType != models.IndexEventRemove {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type must be ADD or REMOVE"})
		return
	}
	effective, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effective_date must be YYYY-MM-DD"})
		return
	}
	announced := time.Now()
	if req.AnnouncementDate != "" {
		announced, err = time.Parse(dateLayout, req.AnnouncementDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "announcement_date must be YYYY-MM-DD"})
			return
		}
	}
	indexName := req.IndexName
	if indexName == "" {
		indexName = "S&P 500"
	}

	event := &models.IndexEvent{
		Stock:            normalizeQueryTicker(req.Ticker),
		IndexName:        indexName,
		EventType:        eventType,
		AnnouncementDate: announced,
		EffectiveDate:    effective,
	}
	result := s.rebalance.AnalyzeEvent(event, time.Now())

	response := gin.H{"analysis": result}
	if price, err := s.market.GetPrice(c.Request.Context(), event.Stock); err == nil {
		current, _ := price.Float64()
		response["current_price"] = price
		response["projected_price"] = result.ProjectPrice(current)
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleListIndexEvents(c *gin.Context) {
	events, err := s.store.UpcomingIndexEvents(time.Now(), 50)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

type createIndexEventRequest struct {
	Stock            string `json:"stock" binding:"required"`
	IndexName        string `json:"index_name" binding:"required"`
	EventType        string `json:"event_type" binding:"required"`
	AnnouncementDate string `json:"announcement_date" binding:"required"`
	EffectiveDate    string `json:"effective_date" binding:"required"`
}

func (s *Server) handleCreateIndexEvent(c *gin.Context) {
	var req createIndexEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventType := strings.ToUpper(strings.TrimSpace(req.EventType))
	if eventType != models.IndexEventAdd && eventType != models.IndexEventRemove {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type must be ADD or REMOVE"})
		return
	}
	announced, err := time.Parse(dateLayout, req.AnnouncementDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "announcement_date must be YYYY-MM-DD"})
		return
	}
	effective, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effective_date must be YYYY-MM-DD"})
		return
	}

	event := &models.IndexEvent{
		Stock:            normalizeQueryTicker(req.Stock),
		IndexName:        req.IndexName,
		EventType:        eventType,
		AnnouncementDate: announced,
		EffectiveDate:    effective,
	}
	if err := s.store.CreateIndexEvent(event); err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Index event recorded",
		"event":   event,
	})
}

func normalizeQueryTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

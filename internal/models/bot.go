package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bot lifecycle states. STOPPED is terminal: the bot's remaining capital
// has been returned to the owner and the bot never trades again.
const (
	BotStatusActive  = "ACTIVE"
	BotStatusPaused  = "PAUSED"
	BotStatusStopped = "STOPPED"
)

// Risk levels selecting a risk profile.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Investment durations scaling the expected return of a profile.
const (
	DurationShort  = "SHORT"
	DurationMedium = "MEDIUM"
	DurationLong   = "LONG"
)

// AutoTradingBot is an automated trading agent owned by a user. Capital
// is carved out of the user's balance at creation and handed back when
// the bot is stopped.
type AutoTradingBot struct {
	gorm.Model
	UserID              uint            `gorm:"index;not null" json:"user_id"`
	Name                string          `gorm:"not null" json:"name"`
	Status              string          `gorm:"not null;default:ACTIVE" json:"status"`
	RiskLevel           string          `gorm:"not null" json:"risk_level"`
	InvestmentDuration  string          `gorm:"not null" json:"investment_duration"`
	InitialCapital      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"initial_capital"`
	CurrentCapital      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"current_capital"`
	ExpectedReturn      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"expected_return"`
	TotalTrades         int             `gorm:"not null;default:0" json:"total_trades"`
	WinningTrades       int             `gorm:"not null;default:0" json:"winning_trades"`
	LosingTrades        int             `gorm:"not null;default:0" json:"losing_trades"`
	TotalProfitLoss     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_profit_loss"`
	UsePivotStrategy    bool            `gorm:"not null;default:true" json:"use_pivot_strategy"`
	UsePrediction       bool            `gorm:"not null;default:true" json:"use_prediction"`
	UseScreener         bool            `gorm:"not null;default:true" json:"use_screener"`
	UseIndexRebalancing bool            `gorm:"not null;default:true" json:"use_index_rebalancing"`
	LastTradeAt         *time.Time      `json:"last_trade_at"`
}

// WinRate returns the share of closed trades that realized a profit, in
// percent. A bot with no trades has a zero win rate.
func (b *AutoTradingBot) WinRate() float64 {
	if b.TotalTrades == 0 {
		return 0
	}
	return float64(b.WinningTrades) / float64(b.TotalTrades) * 100
}

// ROIPercentage returns the realized return on the initial capital, in
// percent.
func (b *AutoTradingBot) ROIPercentage() decimal.Decimal {
	if b.InitialCapital.IsZero() {
		return decimal.Zero
	}
	return b.TotalProfitLoss.Div(b.InitialCapital).Mul(decimal.NewFromInt(100))
}

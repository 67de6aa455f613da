package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bot trade actions.
const (
	TradeActionBuy  = "BUY"
	TradeActionSell = "SELL"
)

// BotTrade is the audit record of a single order executed by a bot. For
// buys, StrategyUsed lists the signal providers that contributed to the
// decision; for sells it carries the exit reason and ProfitLoss the
// realized result.
type BotTrade struct {
	gorm.Model
	BotID           uint            `gorm:"index;not null" json:"bot_id"`
	Stock           string          `gorm:"not null" json:"stock"`
	Action          string          `gorm:"not null" json:"action"`
	Quantity        int64           `gorm:"not null" json:"quantity"`
	Price           decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"price"`
	TotalValue      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_value"`
	StrategyUsed    string          `json:"strategy_used"`
	ConfidenceScore decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"confidence_score"`
	ProfitLoss      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"profit_loss"`
}

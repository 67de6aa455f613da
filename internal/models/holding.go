package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents an open position: one row per (user, stock).
// It deliberately does not use soft deletes; a fully sold position is
// removed so the same stock can be bought again later under the unique
// index.
type Holding struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	UserID       uint            `gorm:"uniqueIndex:idx_user_stock;not null" json:"user_id"`
	Stock        string          `gorm:"uniqueIndex:idx_user_stock;not null" json:"stock"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	BuyingPrice  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"buying_price"`
	CurrentPrice decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"current_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ApplyBuy merges a fill into the position. The new average buying
// price is the quantity-weighted mean of the old position and the fill.
func (h *Holding) ApplyBuy(quantity int64, price decimal.Decimal) {
	totalQuantity := h.Quantity + quantity
	totalCost := h.BuyingPrice.Mul(decimal.NewFromInt(h.Quantity)).
		Add(price.Mul(decimal.NewFromInt(quantity)))
	h.BuyingPrice = totalCost.Div(decimal.NewFromInt(totalQuantity))
	h.Quantity = totalQuantity
	h.CurrentPrice = price
}

// TotalInvested returns the cost basis of the position.
func (h *Holding) TotalInvested() decimal.Decimal {
	return h.BuyingPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// CurrentValue returns the market value at the last known price.
func (h *Holding) CurrentValue() decimal.Decimal {
	return h.CurrentPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// ProfitLoss returns the unrealized profit or loss.
func (h *Holding) ProfitLoss() decimal.Decimal {
	return h.CurrentValue().Sub(h.TotalInvested())
}

// ProfitLossPercentage returns the unrealized profit or loss relative to
// the cost basis, in percent. A zero cost basis yields zero.
func (h *Holding) ProfitLossPercentage() decimal.Decimal {
	invested := h.TotalInvested()
	if invested.IsZero() {
		return decimal.Zero
	}
	return h.ProfitLoss().Div(invested).Mul(decimal.NewFromInt(100))
}

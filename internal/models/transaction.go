package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction types. A buy debits the account, a sell credits it.
const (
	TransactionTypeBuy  = "buy"
	TransactionTypeSell = "sell"
)

// Transaction is an immutable ledger entry. Exactly one of Debit and
// Credit is non-zero, and BalanceAfter snapshots the account balance
// after the entry was applied.
type Transaction struct {
	gorm.Model
	UserID          uint            `gorm:"index;not null" json:"user_id"`
	TransactionType string          `gorm:"not null" json:"transaction_type"`
	Debit           decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"debit"`
	Credit          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"credit"`
	Description     string          `json:"description"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`
}

package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User represents a registered account holding the paper-money balance.
type User struct {
	gorm.Model
	Email        string          `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"not null" json:"-"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Balance      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Index event types.
const (
	IndexEventAdd    = "ADD"
	IndexEventRemove = "REMOVE"
)

// IndexEvent records an announced index constituent change, e.g. a stock
// being added to or removed from the S&P 500. Events drive the index
// rebalancing signal until their effective date has passed.
type IndexEvent struct {
	gorm.Model
	Stock            string    `gorm:"index;not null" json:"stock"`
	IndexName        string    `gorm:"not null" json:"index_name"`
	EventType        string    `gorm:"not null" json:"event_type"`
	AnnouncementDate time.Time `gorm:"not null" json:"announcement_date"`
	EffectiveDate    time.Time `gorm:"index;not null" json:"effective_date"`
}

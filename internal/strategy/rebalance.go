package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
)

// ErrNoPendingEvent is returned when a ticker has no index constituent
// change on the calendar.
var ErrNoPendingEvent = errors.New("no pending index event")

// EventSource provides announced index constituent changes.
type EventSource interface {
	PendingIndexEvent(stock string, at time.Time) (*models.IndexEvent, error)
}

// RebalanceResult is the index rebalancing analysis for one event.
type RebalanceResult struct {
	Ticker          string  `json:"ticker"`
	IndexName       string  `json:"index_name"`
	EventType       string  `json:"event_type"`
	DaysToEffective int     `json:"days_to_effective"`
	Signal          string  `json:"signal"`
	ExpectedMovePct float64 `json:"expected_move_pct"`
	Description     string  `json:"description"`
}

// IndexRebalancingStrategy trades announced index constituent changes.
// Funds tracking an index must buy additions and sell removals by the
// effective date, so the flow pressure builds as that date approaches.
type IndexRebalancingStrategy struct {
	events EventSource
	now    func() time.Time
}

// NewIndexRebalancingStrategy creates an index rebalancing provider
// reading events from the given source.
func NewIndexRebalancingStrategy(events EventSource) *IndexRebalancingStrategy {
	return &IndexRebalancingStrategy{events: events, now: time.Now}
}

// Name implements the Strategy interface.
func (s *IndexRebalancingStrategy) Name() string { return "IndexRebalancing" }

// AnalyzeEvent maps an index constituent change onto a trading signal.
// Returns nil for an unrecognized event type.
func (s *IndexRebalancingStrategy) AnalyzeEvent(event *models.IndexEvent, at time.Time) *RebalanceResult {
	days := int(event.EffectiveDate.Sub(at).Hours() / 24)
	if days < 0 {
		days = 0
	}

	var label, verb string
	var move float64
	switch event.EventType {
	case models.IndexEventAdd:
		verb = "joins"
		if days <= 5 {
			label, move = SignalStrongBuy, 5.0
		} else {
			label, move = SignalBuy, 2.5
		}
	case models.IndexEventRemove:
		verb = "leaves"
		if days <= 5 {
			label, move = SignalStrongSell, -5.0
		} else {
			label, move = SignalSell, -2.5
		}
	default:
		return nil
	}

	return &RebalanceResult{
		Ticker:          event.Stock,
		IndexName:       event.IndexName,
		EventType:       event.EventType,
		DaysToEffective: days,
		Signal:          label,
		ExpectedMovePct: move,
		Description:     fmt.Sprintf("%s %s the %s in %d days", event.Stock, verb, event.IndexName, days),
	}
}

// ProjectPrice applies the expected move to a current price.
func (r *RebalanceResult) ProjectPrice(current float64) float64 {
	return round2(current * (1 + r.ExpectedMovePct/100))
}

// Evaluate implements the Strategy interface. A ticker without a pending
// event yields ErrNoPendingEvent, which the engine treats as the
// provider abstaining.
func (s *IndexRebalancingStrategy) Evaluate(ctx context.Context, ticker string) (*Signal, error) {
	at := s.now()

	event, err := s.events.PendingIndexEvent(ticker, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingEvent
		}
		return nil, err
	}

	result := s.AnalyzeEvent(event, at)
	if result == nil {
		return nil, ErrNoPendingEvent
	}

	return &Signal{
		Label:       result.Signal,
		Score:       SignalScore(result.Signal),
		Description: result.Description,
	}, nil
}

// ensure the provider implements the interface
var _ Strategy = (*IndexRebalancingStrategy)(nil)

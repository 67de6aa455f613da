package strategy

import (
	"context"
	"fmt"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
)

// PivotLevels are the floor-trader pivot levels derived from a single
// session's bar, rounded to cents.
type PivotLevels struct {
	Pivot       float64 `json:"pivot_point"`
	Support1    float64 `json:"support_1"`
	Support2    float64 `json:"support_2"`
	Support3    float64 `json:"support_3"`
	Resistance1 float64 `json:"resistance_1"`
	Resistance2 float64 `json:"resistance_2"`
	Resistance3 float64 `json:"resistance_3"`
}

// CalculatePivotLevels computes the pivot point and three support and
// resistance levels from the given bar.
func CalculatePivotLevels(high, low, close float64) PivotLevels {
	pivot := (high + low + close) / 3

	return PivotLevels{
		Pivot:       round2(pivot),
		Support1:    round2(2*pivot - high),
		Support2:    round2(pivot - (high - low)),
		Support3:    round2(low - 2*(high-pivot)),
		Resistance1: round2(2*pivot - low),
		Resistance2: round2(pivot + (high - low)),
		Resistance3: round2(high + 2*(pivot-low)),
	}
}

// Classify maps a price onto the pivot bands.
func (pl PivotLevels) Classify(price float64) (label, description string) {
	switch {
	case price > pl.Resistance2:
		return SignalStrongBuy, fmt.Sprintf("Price $%.2f broke above R2 ($%.2f)", price, pl.Resistance2)
	case price > pl.Resistance1:
		return SignalBuy, fmt.Sprintf("Price $%.2f above R1 ($%.2f)", price, pl.Resistance1)
	case price >= pl.Support1:
		if price > pl.Pivot {
			return SignalHoldBullish, fmt.Sprintf("Price $%.2f above pivot ($%.2f)", price, pl.Pivot)
		}
		return SignalHoldBearish, fmt.Sprintf("Price $%.2f below pivot ($%.2f)", price, pl.Pivot)
	case price > pl.Support2:
		return SignalSell, fmt.Sprintf("Price $%.2f below S1 ($%.2f)", price, pl.Support1)
	default:
		return SignalStrongSell, fmt.Sprintf("Price $%.2f broke below S2 ($%.2f)", price, pl.Support2)
	}
}

// PivotResult is the full pivot analysis for one bar.
type PivotResult struct {
	Ticker       string      `json:"ticker,omitempty"`
	Signal       string      `json:"signal"`
	Description  string      `json:"description"`
	CurrentPrice float64     `json:"current_price"`
	Levels       PivotLevels `json:"pivot_points"`
}

// PivotStrategy trades the pivot bands of the previous session's bar.
type PivotStrategy struct {
	client marketdata.ClientInterface
}

// NewPivotStrategy creates a pivot signal provider.
func NewPivotStrategy(client marketdata.ClientInterface) *PivotStrategy {
	return &PivotStrategy{client: client}
}

// Name implements the Strategy interface.
func (s *PivotStrategy) Name() string { return "Pivot" }

// Analyze runs the pivot analysis on an explicit bar.
func (s *PivotStrategy) Analyze(high, low, close float64) *PivotResult {
	levels := CalculatePivotLevels(high, low, close)
	label, description := levels.Classify(close)

	return &PivotResult{
		Signal:       label,
		Description:  description,
		CurrentPrice: round2(close),
		Levels:       levels,
	}
}

// AnalyzeTicker runs the pivot analysis on the previous session's bar of
// a ticker.
func (s *PivotStrategy) AnalyzeTicker(ctx context.Context, ticker string) (*PivotResult, error) {
	quote, err := s.client.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if quote.PrevHigh <= 0 || quote.PrevLow <= 0 || quote.PrevClose <= 0 {
		return nil, fmt.Errorf("%w: incomplete bar for %s", marketdata.ErrUnavailable, ticker)
	}

	result := s.Analyze(quote.PrevHigh, quote.PrevLow, quote.PrevClose)
	result.Ticker = ticker
	return result, nil
}

// Evaluate implements the Strategy interface.
func (s *PivotStrategy) Evaluate(ctx context.Context, ticker string) (*Signal, error) {
	result, err := s.AnalyzeTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	return &Signal{
		Label:       result.Signal,
		Score:       SignalScore(result.Signal),
		Description: result.Description,
	}, nil
}

// ensure the provider implements the interface
var _ Strategy = (*PivotStrategy)(nil)

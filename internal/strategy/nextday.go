package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
)

// Next-day direction calls.
const (
	PredictionUp      = "UP"
	PredictionDown    = "DOWN"
	PredictionNeutral = "NEUTRAL"
)

// NextDayResult is the direction call for the next session.
type NextDayResult struct {
	Ticker         string  `json:"ticker,omitempty"`
	Prediction     string  `json:"prediction"`
	Confidence     float64 `json:"confidence"`
	PriceChange    float64 `json:"price_change_today"`
	Volatility     float64 `json:"volatility"`
	CurrentPrice   float64 `json:"current_price"`
	Recommendation string  `json:"recommendation"`
}

// NextDayStrategy scores today's bar to call tomorrow's direction.
type NextDayStrategy struct {
	client marketdata.ClientInterface
}

// NewNextDayStrategy creates a next-day direction provider.
func NewNextDayStrategy(client marketdata.ClientInterface) *NextDayStrategy {
	return &NextDayStrategy{client: client}
}

// Name implements the Strategy interface.
func (s *NextDayStrategy) Name() string { return "Prediction" }

// Analyze runs the direction heuristics on an explicit OHLCV bar. Strong
// moves score higher, and a wide high-low range dampens the score.
func (s *NextDayStrategy) Analyze(open, high, low, close float64, volume int64) *NextDayResult {
	priceChange := (close - open) / open * 100
	hlRange := (high - low) / close * 100

	score := 0.0

	// Bullish indicators
	if priceChange > 2 {
		score += 3
	} else if priceChange > 0 {
		score += 1
	}

	// Bearish indicators
	if priceChange < -2 {
		score -= 3
	} else if priceChange < 0 {
		score -= 1
	}

	// Volatility adjustment
	if hlRange > 5 {
		score *= 0.8
	}

	var prediction string
	var confidence float64
	switch {
	case score >= 2:
		prediction = PredictionUp
		confidence = math.Min(70+score*5, 90)
	case score <= -2:
		prediction = PredictionDown
		confidence = math.Min(70+math.Abs(score)*5, 90)
	default:
		prediction = PredictionNeutral
		confidence = 50
	}

	return &NextDayResult{
		Prediction:     prediction,
		Confidence:     round1(confidence),
		PriceChange:    round2(priceChange),
		Volatility:     round2(hlRange),
		CurrentPrice:   round2(close),
		Recommendation: fmt.Sprintf("Expect price to move %s with %.0f%% confidence", prediction, confidence),
	}
}

// AnalyzeTicker runs the direction heuristics on today's bar of a
// ticker.
func (s *NextDayStrategy) AnalyzeTicker(ctx context.Context, ticker string) (*NextDayResult, error) {
	quote, err := s.client.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if quote.Open <= 0 || quote.Close <= 0 {
		return nil, fmt.Errorf("%w: incomplete bar for %s", marketdata.ErrUnavailable, ticker)
	}

	result := s.Analyze(quote.Open, quote.High, quote.Low, quote.Close, quote.Volume)
	result.Ticker = ticker
	return result, nil
}

// Evaluate implements the Strategy interface. Anything but an UP call
// contributes a bearish score, NEUTRAL included.
func (s *NextDayStrategy) Evaluate(ctx context.Context, ticker string) (*Signal, error) {
	result, err := s.AnalyzeTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	score := result.Confidence
	if result.Prediction != PredictionUp {
		score = -score
	}

	return &Signal{
		Label:       result.Prediction,
		Score:       score,
		Description: result.Recommendation,
	}, nil
}

// ensure the provider implements the interface
var _ Strategy = (*NextDayStrategy)(nil)
